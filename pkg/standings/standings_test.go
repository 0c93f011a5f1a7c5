package standings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/flasharena/pkg/data"
)

func history(results ...data.MatchResult) []data.MatchHistoryItem {
	items := make([]data.MatchHistoryItem, len(results))
	for i, r := range results {
		items[i] = data.MatchHistoryItem{MatchID: string(rune('a' + i)), Result: r}
	}
	return items
}

const (
	W = data.ResultWin
	L = data.ResultLoss
	U = data.ResultUnknown
)

func TestHasConsecutiveResults(t *testing.T) {
	tests := []struct {
		name    string
		history []data.MatchHistoryItem
		result  data.MatchResult
		needed  int
		want    bool
	}{
		{"Empty", nil, W, 3, false},
		{"ExactRun", history(W, W, W), W, 3, true},
		{"BrokenRun", history(W, W, L, W), W, 3, false},
		{"RunInMiddle", history(L, W, W, W, L), W, 3, true},
		{"UnknownBreaksRun", history(W, W, U, W, W), W, 3, false},
		{"LossRun", history(W, L, L, L, L), L, 4, true},
		{"ShorterThanNeeded", history(L, L, L, L), L, 5, false},
		{"ZeroNeeded", nil, W, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasConsecutiveResults(tt.history, tt.result, tt.needed))
		})
	}
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 10)

	ids := make([]string, len(cat))
	for i, a := range cat {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{
		"elo-1000", "elo-1100", "elo-1200", "elo-1300",
		"streak-3-win", "streak-4-win", "streak-5-win",
		"streak-3-loss", "streak-4-loss", "streak-5-loss",
	}, ids)

	godlike, ok := Lookup("elo-1300")
	require.True(t, ok)
	assert.Equal(t, "Godlike", godlike.Title)
	assert.Equal(t, "violet", godlike.Color)

	_, ok = Lookup("elo-9000")
	assert.False(t, ok)

	// Mutating the copy does not affect later callers
	cat[0].Title = "changed"
	assert.Equal(t, "Aspirant", Catalog()[0].Title)
}

func TestEloTierMonotonicity(t *testing.T) {
	tests := []struct {
		elo  float64
		want []string
	}{
		{999.99, []string{}},
		{1000, []string{"elo-1000"}},
		{1150, []string{"elo-1000", "elo-1100"}},
		{1200, []string{"elo-1000", "elo-1100", "elo-1200"}},
		{1450, []string{"elo-1000", "elo-1100", "elo-1200", "elo-1300"}},
	}

	for _, tt := range tests {
		got := Unlocked(data.Student{EloRating: tt.elo}, nil)
		assert.Equal(t, tt.want, got, "elo=%v", tt.elo)
	}
}

func TestUnlockedCombinesRatingAndStreaks(t *testing.T) {
	student := data.Student{ID: "s1", EloRating: 1105}
	got := Unlocked(student, history(W, W, W, W, L, L, L))

	assert.Equal(t, []string{"elo-1000", "elo-1100", "streak-3-win", "streak-4-win", "streak-3-loss"}, got)

	evaluated := Evaluate(student, history(W, W, W, W, L, L, L))
	require.Len(t, evaluated, 5)
	assert.Equal(t, "Ultra Kill", evaluated[3].Title)
}

func TestLongestStreaks(t *testing.T) {
	s := LongestStreaks(history(W, W, L, W, W, W, U, L, L))
	assert.Equal(t, 3, s.LongestWin)
	assert.Equal(t, 2, s.LongestLoss)
	assert.Equal(t, 2, s.Current)
	assert.Equal(t, L, s.CurrentKind)

	empty := LongestStreaks(nil)
	assert.Zero(t, empty)
}

func TestRankStudents(t *testing.T) {
	students := []data.Student{
		{ID: "a", EloRating: 1000},
		{ID: "b", EloRating: 1100},
		{ID: "c", EloRating: 1000},
		{ID: "d", EloRating: 1200},
		{ID: "e", EloRating: 1000},
	}

	ranked := RankStudents(students)
	require.Len(t, ranked, 5)

	order := make([]string, len(ranked))
	for i, r := range ranked {
		order[i] = r.Student.ID
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, []string{"d", "b", "a", "c", "e"}, order)

	// Input untouched
	assert.Equal(t, "a", students[0].ID)
	assert.Empty(t, RankStudents(nil))
}

func TestRankArena(t *testing.T) {
	stats := []data.ArenaStudentStats{
		{StudentID: "x", EloRating: 990},
		{StudentID: "y", EloRating: 1016},
		{StudentID: "z", EloRating: 990},
	}
	ranked := RankArena(stats)
	assert.Equal(t, "y", ranked[0].StudentID)
	assert.Equal(t, "x", ranked[1].StudentID)
	assert.Equal(t, "z", ranked[2].StudentID)
	assert.Equal(t, "x", stats[0].StudentID)
}
