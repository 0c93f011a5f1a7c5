package arena

import (
	"errors"
	"strings"
)

// Arena errors
var (
	ErrInvalidState        = errors.New("no active arena session or match")
	ErrDataIntegrity       = errors.New("invalid match data")
	ErrConcurrentOperation = errors.New("another arena operation is in progress")
	ErrStaleResponse       = errors.New("response belongs to a session that is no longer active")
	ErrNoFlashcards        = errors.New("no flashcards available in the selected pack")
	ErrWinnerNotAllowed    = errors.New("winner selection is not available right now")
)

// Setup validation messages shown next to the offending field
const (
	MsgSelectPack    = "Please select a flashcard pack"
	MsgSelectPlayers = "Please select at least 2 players"
	MsgRoundsRange   = "Number of rounds must be between 1 and 20"
)

// ValidationError carries per-field problems found in a battle setup. It is
// produced before any network call is made.
type ValidationError struct {
	Pack    string
	Players string
	Rounds  string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, m := range []string{e.Pack, e.Players, e.Rounds} {
		if m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

// empty reports whether no field carries a problem
func (e *ValidationError) empty() bool {
	return e.Pack == "" && e.Players == "" && e.Rounds == ""
}
