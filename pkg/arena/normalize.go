// Package arena drives a flashcard battle: the session lifecycle against the
// backend and the step machine the screens follow.
package arena

import (
	"fmt"

	"github.com/pashagolub/flasharena/pkg/data"
)

// Normalize flattens a two-participant match. The first participant becomes
// player 1 and the second player 2.
func Normalize(raw data.RawMatch) (data.ArenaMatch, error) {
	if len(raw.Participants) != 2 {
		return data.ArenaMatch{}, fmt.Errorf("%w: expected exactly 2 participants, got %d", ErrDataIntegrity, len(raw.Participants))
	}
	p1, p2 := raw.Participants[0], raw.Participants[1]

	winners := make([]string, len(raw.WinnerIDs))
	copy(winners, raw.WinnerIDs)

	return data.ArenaMatch{
		ID:               raw.ID,
		ArenaID:          raw.ArenaID,
		Status:           raw.Status,
		NumRounds:        raw.NumRounds,
		RoundsCompleted:  raw.RoundsCompleted,
		Player1ID:        p1.StudentID,
		Player2ID:        p2.StudentID,
		Player1EloBefore: p1.EloBefore,
		Player2EloBefore: p2.EloBefore,
		Player1EloAfter:  copyFloat(p1.EloAfter),
		Player2EloAfter:  copyFloat(p2.EloAfter),
		WinnerIDs:        winners,
		CreatedAt:        raw.CreatedAt,
		UpdatedAt:        raw.UpdatedAt,
	}, nil
}

// NormalizeWithWinners normalizes raw and replaces its winner list with the
// one just submitted. The server payload may still carry a stale list.
func NormalizeWithWinners(raw data.RawMatch, winnerIDs []string) (data.ArenaMatch, error) {
	m, err := Normalize(raw)
	if err != nil {
		return m, err
	}
	m.WinnerIDs = append([]string{}, winnerIDs...)
	return m, nil
}

// Denormalize rebuilds the participant list of a flattened match
func Denormalize(m data.ArenaMatch) data.RawMatch {
	winners := make([]string, len(m.WinnerIDs))
	copy(winners, m.WinnerIDs)
	return data.RawMatch{
		ID:              m.ID,
		ArenaID:         m.ArenaID,
		Status:          m.Status,
		NumRounds:       m.NumRounds,
		RoundsCompleted: m.RoundsCompleted,
		Participants: []data.MatchParticipant{
			{StudentID: m.Player1ID, EloBefore: m.Player1EloBefore, EloAfter: copyFloat(m.Player1EloAfter)},
			{StudentID: m.Player2ID, EloBefore: m.Player2EloBefore, EloAfter: copyFloat(m.Player2EloAfter)},
		},
		WinnerIDs: winners,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
