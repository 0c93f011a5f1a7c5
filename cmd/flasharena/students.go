package main

import (
	"context"
	"fmt"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/report"
	"github.com/pashagolub/flasharena/pkg/standings"
)

// idArg is the positional id shared by commands acting on one record
type idArg struct {
	ID string `positional-arg-name:"ID" description:"Record id"`
}

// StudentsCommand groups 'flasharena students' subcommands
type StudentsCommand struct {
	List         StudentsListCommand         `command:"list" description:"List all students"`
	Show         StudentsShowCommand         `command:"show" description:"Show one student"`
	Add          StudentsAddCommand          `command:"add" description:"Register a student"`
	Update       StudentsUpdateCommand       `command:"update" description:"Rename a student or change the avatar"`
	Remove       StudentsRemoveCommand       `command:"remove" description:"Delete a student"`
	History      StudentsHistoryCommand      `command:"history" description:"Show the match history of a student"`
	Reset        StudentsResetCommand        `command:"reset" description:"Reset rating and statistics of a student"`
	Achievements StudentsAchievementsCommand `command:"achievements" description:"Show awarded and unlocked achievements"`
}

func newStudentsCommand(c *cli) *StudentsCommand {
	cmd := &StudentsCommand{}
	cmd.List.cli = c
	cmd.Show.cli = c
	cmd.Add.cli = c
	cmd.Update.cli = c
	cmd.Remove.cli = c
	cmd.History.cli = c
	cmd.Reset.cli = c
	cmd.Achievements.cli = c
	return cmd
}

// StudentsListCommand handles 'flasharena students list'
type StudentsListCommand struct {
	cli *cli
}

// Execute implements the Command interface for StudentsListCommand
func (c *StudentsListCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		students, err := s.client.ListStudents(ctx)
		if err != nil {
			return apiError("Could not load students", err, s.config.API.BaseURL)
		}
		return p.Roster(students)
	})
}

// StudentsShowCommand handles 'flasharena students show'
type StudentsShowCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for StudentsShowCommand
func (c *StudentsShowCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		st, err := s.client.GetStudent(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load student", err, s.config.API.BaseURL)
		}
		return p.Student(st)
	})
}

// StudentsAddCommand handles 'flasharena students add'
type StudentsAddCommand struct {
	Name   string `long:"name" short:"n" description:"Display name" required:"yes"`
	Avatar string `long:"avatar" description:"Avatar image URL"`
	cli    *cli
}

// Execute implements the Command interface for StudentsAddCommand
func (c *StudentsAddCommand) Execute(args []string) error {
	in := data.StudentInput{Name: c.Name, AvatarURL: c.Avatar}
	if err := in.Validate(); err != nil {
		return validationError(err)
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		st, err := s.client.CreateStudent(ctx, in)
		if err != nil {
			return apiError("Could not create student", err, s.config.API.BaseURL)
		}
		s.log.Debug("student created")
		return p.Student(st)
	})
}

// StudentsUpdateCommand handles 'flasharena students update'
type StudentsUpdateCommand struct {
	Name   string `long:"name" short:"n" description:"New display name"`
	Avatar string `long:"avatar" description:"New avatar image URL"`
	Args   idArg  `positional-args:"yes" required:"yes"`
	cli    *cli
}

// Execute implements the Command interface for StudentsUpdateCommand
func (c *StudentsUpdateCommand) Execute(args []string) error {
	if c.Name == "" && c.Avatar == "" {
		return &CLIError{
			Code:        ExitValidationError,
			Message:     "Nothing to update",
			Suggestions: []string{"Pass --name and/or --avatar"},
		}
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		current, err := s.client.GetStudent(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load student", err, s.config.API.BaseURL)
		}
		in := data.StudentInput{Name: current.Name, AvatarURL: current.AvatarURL}
		if c.Name != "" {
			in.Name = c.Name
		}
		if c.Avatar != "" {
			in.AvatarURL = c.Avatar
		}
		if err := in.Validate(); err != nil {
			return validationError(err)
		}
		st, err := s.client.UpdateStudent(ctx, c.Args.ID, in)
		if err != nil {
			return apiError("Could not update student", err, s.config.API.BaseURL)
		}
		return p.Student(st)
	})
}

// StudentsRemoveCommand handles 'flasharena students remove'
type StudentsRemoveCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for StudentsRemoveCommand
func (c *StudentsRemoveCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, _ *report.Printer) error {
		if err := s.client.DeleteStudent(ctx, c.Args.ID); err != nil {
			return apiError("Could not delete student", err, s.config.API.BaseURL)
		}
		fmt.Fprintf(c.cli.stdout, "Student %s deleted\n", c.Args.ID)
		return nil
	})
}

// StudentsHistoryCommand handles 'flasharena students history'
type StudentsHistoryCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for StudentsHistoryCommand
func (c *StudentsHistoryCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		items, err := s.client.StudentHistory(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load match history", err, s.config.API.BaseURL)
		}
		return p.History(items)
	})
}

// StudentsResetCommand handles 'flasharena students reset'
type StudentsResetCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for StudentsResetCommand
func (c *StudentsResetCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		st, err := s.client.ResetStudent(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not reset student", err, s.config.API.BaseURL)
		}
		return p.Student(st)
	})
}

// StudentsAchievementsCommand handles 'flasharena students achievements'
type StudentsAchievementsCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for StudentsAchievementsCommand
func (c *StudentsAchievementsCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		st, err := s.client.GetStudent(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load student", err, s.config.API.BaseURL)
		}
		awarded, err := s.client.StudentAchievements(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load achievements", err, s.config.API.BaseURL)
		}
		history, err := s.client.StudentHistory(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load match history", err, s.config.API.BaseURL)
		}
		return p.Achievements(awarded, standings.Evaluate(st, history))
	})
}
