package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pashagolub/flasharena/pkg/data"
)

func studentPath(id string) string {
	return "/students/" + url.PathEscape(id)
}

// ListStudents returns the whole roster
func (c *Client) ListStudents(ctx context.Context) ([]data.Student, error) {
	var students []data.Student
	err := c.do(ctx, call{op: "list students", method: http.MethodGet, path: "/students"}, &students)
	return students, err
}

// GetStudent returns a single student
func (c *Client) GetStudent(ctx context.Context, id string) (data.Student, error) {
	var student data.Student
	err := c.do(ctx, call{op: "get student", method: http.MethodGet, path: studentPath(id)}, &student)
	return student, err
}

// CreateStudent adds a student to the roster
func (c *Client) CreateStudent(ctx context.Context, in data.StudentInput) (data.Student, error) {
	var student data.Student
	if err := in.Validate(); err != nil {
		return student, err
	}
	err := c.do(ctx, call{op: "create student", method: http.MethodPost, path: "/students", body: in}, &student)
	return student, err
}

// UpdateStudent changes a student's name or avatar
func (c *Client) UpdateStudent(ctx context.Context, id string, in data.StudentInput) (data.Student, error) {
	var student data.Student
	if err := in.Validate(); err != nil {
		return student, err
	}
	err := c.do(ctx, call{op: "update student", method: http.MethodPut, path: studentPath(id), body: in}, &student)
	return student, err
}

// DeleteStudent removes a student
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete student", method: http.MethodDelete, path: studentPath(id)}, nil)
}

// StudentHistory returns a student's match history in the order the backend reports it
func (c *Client) StudentHistory(ctx context.Context, id string) ([]data.MatchHistoryItem, error) {
	var history []data.MatchHistoryItem
	err := c.do(ctx, call{op: "get student history", method: http.MethodGet, path: studentPath(id) + "/history"}, &history)
	return history, err
}

// ResetStudent restores a student's rating and record to their initial values
func (c *Client) ResetStudent(ctx context.Context, id string) (data.Student, error) {
	var student data.Student
	err := c.do(ctx, call{op: "reset student stats", method: http.MethodPost, path: studentPath(id) + "/reset"}, &student)
	return student, err
}

// StudentAchievements lists achievements the backend has awarded. This
// endpoint is not wrapped in the data envelope.
func (c *Client) StudentAchievements(ctx context.Context, id string) ([]data.StudentAchievement, error) {
	var awarded []data.StudentAchievement
	err := c.do(ctx, call{
		op:        "get student achievements",
		method:    http.MethodGet,
		path:      studentPath(id) + "/achievements",
		unwrapped: true,
	}, &awarded)
	return awarded, err
}
