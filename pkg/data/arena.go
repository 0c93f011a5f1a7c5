package data

// SessionStatus is the lifecycle state of an arena session
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// MatchStatus is the lifecycle state of a single match
type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

// ArenaStudentStats is a participant's standing within one arena session
type ArenaStudentStats struct {
	StudentID    string  `json:"student_id"`
	Name         string  `json:"name"`
	EloRating    float64 `json:"elo_rating"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	FightsPlayed int     `json:"fights_played"`
	EloChange    float64 `json:"elo_change"`
}

// ArenaSession is the server-owned record of a multi-round battle
type ArenaSession struct {
	ID              string              `json:"id"`
	Status          SessionStatus       `json:"status"`
	NumRounds       int                 `json:"num_rounds"`
	RoundsCompleted int                 `json:"rounds_completed"`
	Participants    []ArenaStudentStats `json:"participants"`
	CreatedAt       Timestamp           `json:"created_at"`
	UpdatedAt       Timestamp           `json:"updated_at"`
}

// IsFinished reports whether no further rounds will be played
func (s ArenaSession) IsFinished() bool {
	return s.Status == SessionCompleted || s.RoundsCompleted == s.NumRounds
}

// Participant returns the stats for a student, if present
func (s ArenaSession) Participant(studentID string) (ArenaStudentStats, bool) {
	for _, p := range s.Participants {
		if p.StudentID == studentID {
			return p, true
		}
	}
	return ArenaStudentStats{}, false
}

// MatchParticipant is one side of a match as the backend sends it
type MatchParticipant struct {
	StudentID string   `json:"student_id"`
	EloBefore float64  `json:"elo_before"`
	EloAfter  *float64 `json:"elo_after"`
}

// RawMatch is the match payload exactly as the backend delivers it
type RawMatch struct {
	ID              string             `json:"id"`
	ArenaID         string             `json:"arena_id,omitempty"`
	Status          MatchStatus        `json:"status"`
	NumRounds       int                `json:"num_rounds"`
	RoundsCompleted int                `json:"rounds_completed"`
	Participants    []MatchParticipant `json:"participants"`
	WinnerIDs       []string           `json:"winner_ids"`
	CreatedAt       Timestamp          `json:"created_at"`
	UpdatedAt       Timestamp          `json:"updated_at"`
}

// ArenaMatch is a two-player match flattened for display. A nil EloAfter
// means the rating has not been recorded yet.
type ArenaMatch struct {
	ID               string      `json:"id"`
	ArenaID          string      `json:"arena_id,omitempty"`
	Status           MatchStatus `json:"status"`
	NumRounds        int         `json:"num_rounds"`
	RoundsCompleted  int         `json:"rounds_completed"`
	Player1ID        string      `json:"player1_id"`
	Player2ID        string      `json:"player2_id"`
	Player1EloBefore float64     `json:"player1_elo_before"`
	Player2EloBefore float64     `json:"player2_elo_before"`
	Player1EloAfter  *float64    `json:"player1_elo_after,omitempty"`
	Player2EloAfter  *float64    `json:"player2_elo_after,omitempty"`
	WinnerIDs        []string    `json:"winner_ids"`
	CreatedAt        Timestamp   `json:"created_at"`
	UpdatedAt        Timestamp   `json:"updated_at"`
}

// HasPlayer reports whether the student takes part in the match
func (m ArenaMatch) HasPlayer(studentID string) bool {
	return m.Player1ID == studentID || m.Player2ID == studentID
}

// IsWinner reports whether the student is among the recorded winners
func (m ArenaMatch) IsWinner(studentID string) bool {
	for _, id := range m.WinnerIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// CreateArenaRequest is the payload that opens a session
type CreateArenaRequest struct {
	StudentIDs []string `json:"student_ids"`
	NumRounds  int      `json:"num_rounds"`
}

// SetWinnerRequest is the payload that records a round winner
type SetWinnerRequest struct {
	WinnerIDs []string `json:"winner_ids"`
}

// MatchWinnerResponse is returned after a winner has been recorded
type MatchWinnerResponse struct {
	Match        RawMatch     `json:"match"`
	ArenaSession ArenaSession `json:"arena_session"`
}

// ArenaResults are the final standings of a session
type ArenaResults struct {
	Rankings []ArenaStudentStats `json:"rankings"`
	Matches  []RawMatch          `json:"matches"`
}
