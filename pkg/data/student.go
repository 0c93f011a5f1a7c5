package data

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error types for roster validation
var (
	ErrInvalidStudent = errors.New("invalid student")
	ErrRequiredField  = errors.New("required field missing")
)

// DefaultEloRating is the rating the backend assigns to a new student
const DefaultEloRating = 1000.0

// MaxNameLength mirrors the backend limit on student and pack names
const MaxNameLength = 100

// Student is a roster entry as reported by the backend. Rating and
// win/loss figures are never recomputed locally.
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	EloRating    float64   `json:"elo_rating"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	TotalMatches int       `json:"total_matches"`
	WinRate      float64   `json:"win_rate"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// StudentInput is the create/update payload for a student
type StudentInput struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Validate trims the name and checks its length
func (in *StudentInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)

	if in.Name == "" {
		return fmt.Errorf("%w: %w: name cannot be empty", ErrInvalidStudent, ErrRequiredField)
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidStudent, MaxNameLength)
	}
	return nil
}

// MatchResult is the outcome of a historical match from one student's view
type MatchResult string

const (
	ResultWin     MatchResult = "win"
	ResultLoss    MatchResult = "loss"
	ResultUnknown MatchResult = "unknown"
)

// MatchHistoryItem is one entry of a student's match history
type MatchHistoryItem struct {
	MatchID      string      `json:"match_id"`
	Date         Timestamp   `json:"date"`
	OpponentName string      `json:"opponent_name"`
	OldElo       float64     `json:"old_elo"`
	NewElo       float64     `json:"new_elo"`
	EloChange    float64     `json:"elo_change"`
	Result       MatchResult `json:"result"`
}

// AchievementInfo is the server-side definition of an awarded achievement
type AchievementInfo struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Criteria    string `json:"criteria,omitempty"`
}

// StudentAchievement is an achievement the backend has awarded to a student
type StudentAchievement struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	Achievement AchievementInfo `json:"achievement"`
	AchievedAt  Timestamp       `json:"achieved_at"`
}
