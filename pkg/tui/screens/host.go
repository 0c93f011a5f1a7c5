// Package screens implements the arena screens: battle setup, the versus
// intro, the battle itself, round and final results, and the leaderboard.
//
// Screens receive the application as an opaque value in OnEnter and talk to
// it through the host interface, so they never import the tui package.
package screens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
)

// Roster is the read side of the backend used to fill the setup and
// leaderboard screens
type Roster interface {
	ListStudents(ctx context.Context) ([]data.Student, error)
	ListPacks(ctx context.Context) ([]data.FlashcardPack, error)
	PackFlashcards(ctx context.Context, packID string) ([]data.Flashcard, error)
	StudentHistory(ctx context.Context, id string) ([]data.MatchHistoryItem, error)
}

// host is what a screen needs from the application
type host interface {
	Flow() *arena.Flow
	Roster() Roster
	Config() data.Config
	// Dispatch runs op off the UI goroutine. A failure is shown in an error
	// dialog that can retry op; afterwards the display is synced with the flow.
	Dispatch(title string, op func(ctx context.Context) error)
	// After runs fn on the UI goroutine once d has passed
	After(d time.Duration, fn func()) (cancel func())
	// Sync shows the screen of the current battle step and refreshes it
	Sync()
	ShowLeaderboard() error
}

var errNoHost = errors.New("screen requires the arena application")

func hostOf(app any) (host, error) {
	h, ok := app.(host)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", errNoHost, app)
	}
	return h, nil
}

// playerName returns the display name of a session participant, falling
// back to the id
func playerName(session *data.ArenaSession, studentID string) string {
	if session != nil {
		if p, ok := session.Participant(studentID); ok && p.Name != "" {
			return p.Name
		}
	}
	return studentID
}

func signedElo(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("[green]%+.0f[-]", v)
	case v < 0:
		return fmt.Sprintf("[red]%+.0f[-]", v)
	default:
		return "±0"
	}
}
