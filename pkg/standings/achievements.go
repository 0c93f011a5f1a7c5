// Package standings derives display-only figures from roster data: unlocked
// achievements, streaks and leaderboard order. Nothing here mutates the inputs
// or talks to the backend.
package standings

import (
	"github.com/pashagolub/flasharena/pkg/data"
)

// Achievement is a badge a student unlocks by rating or by streak
type Achievement struct {
	ID          string
	Title       string
	Description string
	Color       string
	Condition   func(student data.Student, history []data.MatchHistoryItem) bool
}

func eloAtLeast(threshold float64) func(data.Student, []data.MatchHistoryItem) bool {
	return func(s data.Student, _ []data.MatchHistoryItem) bool {
		return s.EloRating >= threshold
	}
}

func streakOf(result data.MatchResult, needed int) func(data.Student, []data.MatchHistoryItem) bool {
	return func(_ data.Student, history []data.MatchHistoryItem) bool {
		return HasConsecutiveResults(history, result, needed)
	}
}

var catalog = []Achievement{
	{ID: "elo-1000", Title: "Aspirant", Description: "Reached 1000+ ELO rating", Color: "green", Condition: eloAtLeast(1000)},
	{ID: "elo-1100", Title: "Challenger", Description: "Reached 1100+ ELO rating", Color: "teal", Condition: eloAtLeast(1100)},
	{ID: "elo-1200", Title: "Gladiator", Description: "Reached 1200+ ELO rating", Color: "blue", Condition: eloAtLeast(1200)},
	{ID: "elo-1300", Title: "Godlike", Description: "Reached 1300+ ELO rating", Color: "violet", Condition: eloAtLeast(1300)},

	{ID: "streak-3-win", Title: "Triple Kill", Description: "Won 3 matches in a row at some point", Color: "orange", Condition: streakOf(data.ResultWin, 3)},
	{ID: "streak-4-win", Title: "Ultra Kill", Description: "Won 4 consecutive matches at some point", Color: "red", Condition: streakOf(data.ResultWin, 4)},
	{ID: "streak-5-win", Title: "Unstoppable", Description: "Won 5 consecutive matches at some point", Color: "grape", Condition: streakOf(data.ResultWin, 5)},

	{ID: "streak-3-loss", Title: "Rough Patch", Description: "Had a 3-match losing streak at some point", Color: "gray", Condition: streakOf(data.ResultLoss, 3)},
	{ID: "streak-4-loss", Title: "Down Bad", Description: "Had a 4-match losing streak at some point", Color: "dark", Condition: streakOf(data.ResultLoss, 4)},
	{ID: "streak-5-loss", Title: "Dark Times", Description: "Had a 5-match losing streak at some point", Color: "black", Condition: streakOf(data.ResultLoss, 5)},
}

// Catalog returns a copy of all known achievements in display order
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an achievement by id
func Lookup(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// HasConsecutiveResults reports whether history, in the order given, contains
// at least needed consecutive entries equal to result. Any other result,
// including unknown, breaks the run.
func HasConsecutiveResults(history []data.MatchHistoryItem, result data.MatchResult, needed int) bool {
	if needed <= 0 {
		return true
	}
	streak := 0
	for _, item := range history {
		if item.Result != result {
			streak = 0
			continue
		}
		streak++
		if streak >= needed {
			return true
		}
	}
	return false
}

// Evaluate returns every achievement the student currently qualifies for,
// in catalog order. Each condition is checked independently.
func Evaluate(student data.Student, history []data.MatchHistoryItem) []Achievement {
	var unlocked []Achievement
	for _, a := range catalog {
		if a.Condition(student, history) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// Unlocked returns the ids of the achievements Evaluate would return
func Unlocked(student data.Student, history []data.MatchHistoryItem) []string {
	achievements := Evaluate(student, history)
	ids := make([]string, 0, len(achievements))
	for _, a := range achievements {
		ids = append(ids, a.ID)
	}
	return ids
}

// Streaks holds the longest runs found in a history
type Streaks struct {
	LongestWin  int
	LongestLoss int
	Current     int              // Length of the run at the end of history
	CurrentKind data.MatchResult // Result of that run, empty for no history
}

// LongestStreaks scans history in order and reports the best runs
func LongestStreaks(history []data.MatchHistoryItem) Streaks {
	var s Streaks
	run := 0
	var kind data.MatchResult
	for _, item := range history {
		if item.Result == kind {
			run++
		} else {
			kind = item.Result
			run = 1
		}
		switch kind {
		case data.ResultWin:
			s.LongestWin = max(s.LongestWin, run)
		case data.ResultLoss:
			s.LongestLoss = max(s.LongestLoss, run)
		}
	}
	if len(history) > 0 {
		s.Current = run
		s.CurrentKind = kind
	}
	return s
}
