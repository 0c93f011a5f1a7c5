package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/journal"
	"github.com/pashagolub/flasharena/pkg/standings"
)

func roster() []data.Student {
	return []data.Student{
		{ID: "1", Name: "zoe", EloRating: 1000, Wins: 1, Losses: 1, TotalMatches: 2, WinRate: 0.5},
		{ID: "2", Name: "Émile", EloRating: 1200, Wins: 3, TotalMatches: 3, WinRate: 1},
		{ID: "3", Name: "Ada", EloRating: 1000},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"table", FormatTable, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestLeaderboardTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, WithPlain())
	require.NoError(t, p.Leaderboard(standings.RankStudents(roster())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Leaderboard", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "rank  name"))
	assert.True(t, strings.HasPrefix(lines[3], "1     Émile"), lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "2     zoe"), lines[4])
	assert.Contains(t, lines[4], "50.0%")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestLeaderboardCSVAndJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatCSV).Leaderboard(standings.RankStudents(roster())))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"rank", "name", "elo", "wins", "losses", "matches", "win_rate"}, records[0])
	assert.Equal(t, []string{"1", "Émile", "1200", "3", "0", "3", "100.0%"}, records[1])
	// Ties keep roster order
	assert.Equal(t, "zoe", records[2][1])
	assert.Equal(t, "Ada", records[3][1])

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON).Leaderboard(standings.RankStudents(roster())))
	var ranked []standings.RankedStudent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ranked))
	require.Len(t, ranked, 3)
	assert.Equal(t, "2", ranked[0].Student.ID)

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON).Leaderboard(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRosterCollation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatCSV).Roster(roster()))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	names := []string{records[1][1], records[2][1], records[3][1]}
	// Accented and lower-case names sort with their base letters
	assert.Equal(t, []string{"Ada", "Émile", "zoe"}, names)

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatCSV, WithLanguage(language.Swedish)).Roster([]data.Student{{Name: "Ö"}, {Name: "Z"}}))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Z", records[1][1])
}

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, WithPlain()).History(nil))
	assert.Equal(t, "Match history\nNo matches played yet\n", buf.String())
}

func TestHistoryAndStandings(t *testing.T) {
	var buf bytes.Buffer
	items := []data.MatchHistoryItem{
		{MatchID: "m1", OpponentName: "Grace", OldElo: 1000, NewElo: 1016, EloChange: 16, Result: data.ResultWin},
		{MatchID: "m2", OpponentName: "Linus", OldElo: 1016, NewElo: 999, EloChange: -17, Result: data.ResultLoss},
	}
	require.NoError(t, NewPrinter(&buf, FormatCSV).History(items))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Grace", "win", "1000", "1016", "+16"}, records[1])
	assert.Equal(t, "-17", records[2][5])

	buf.Reset()
	results := data.ArenaResults{Rankings: []data.ArenaStudentStats{
		{StudentID: "a", Name: "Ada", EloRating: 990, EloChange: -10},
		{StudentID: "g", Name: "Grace", EloRating: 1010, EloChange: 10, Wins: 1},
	}}
	require.NoError(t, NewPrinter(&buf, FormatTable, WithPlain()).Standings(results))
	out := buf.String()
	assert.Less(t, strings.Index(out, "Grace"), strings.Index(out, "Ada"))
	assert.Contains(t, out, "+10")
}

func TestCardsTableUsesPlainText(t *testing.T) {
	cards := []data.Flashcard{{ID: "c1", PackID: "p1", Question: "<b>Capital</b> of <i>Peru</i>?", Answer: "Lima", Difficulty: data.DifficultyHard}}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, WithPlain()).Cards(cards))
	assert.Contains(t, buf.String(), "Capital of Peru?")
	assert.NotContains(t, buf.String(), "<b>")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatCSV).Cards(cards))
	assert.Contains(t, buf.String(), "<b>Capital</b>")
}

func TestAchievementsMergesLocalCatalog(t *testing.T) {
	awarded := []data.StudentAchievement{{
		Achievement: data.AchievementInfo{Code: "elo-1000", Title: "Aspirant", Description: "Reach 1000 ELO"},
	}}
	unlocked := standings.Evaluate(data.Student{EloRating: 1150}, nil)

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatJSON).Achievements(awarded, unlocked))
	var rows []achievementRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "elo-1000", rows[0].ID)
	assert.Equal(t, "elo-1100", rows[1].ID)
}

func TestImportResult(t *testing.T) {
	var buf bytes.Buffer
	r := data.BulkImportResult{Total: 3, Successful: 2, Failed: 1, Errors: []string{"Row 3: answer cannot be empty"}}
	require.NoError(t, NewPrinter(&buf, FormatTable, WithPlain()).ImportResult(r))
	assert.Contains(t, buf.String(), "Row 3: answer cannot be empty")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "abcdefgh", Truncate("abcdefgh", 0))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "world-capitals-2024.csv", Filename("World Capitals (2024)", "csv"))
	assert.Equal(t, "chemistry.json", Filename("Chemistry", ".json"))
	assert.Equal(t, "export.csv", Filename("???", "csv"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "question,answer\n")
		return err
	}))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "question,answer\n", string(content))

	// A failed write leaves the previous file in place and no temporaries
	err = WriteFile(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("boom")
	})
	require.Error(t, err)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "question,answer\n", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournalListing(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(dir, "arena-1")
	require.NoError(t, err)
	require.NoError(t, j.BattleStarted(data.ArenaSession{
		ID:        "arena-1",
		NumRounds: 1,
		Participants: []data.ArenaStudentStats{
			{StudentID: "a", Name: "Ada"},
			{StudentID: "g", Name: "Grace"},
		},
	}, "p1"))
	require.NoError(t, j.RoundScored(data.ArenaMatch{ID: "m1", Player1ID: "a", Player2ID: "g", WinnerIDs: []string{"a", "g"}}, data.ArenaSession{RoundsCompleted: 1}))
	require.NoError(t, j.BattleFinished(data.ArenaResults{Rankings: []data.ArenaStudentStats{{StudentID: "g", Name: "Grace"}}}))
	require.NoError(t, j.Close())

	res, err := journal.Query(j.Path(), journal.QueryOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, WithPlain()).Journal(res.Entries))
	out := buf.String()
	assert.Contains(t, out, "1 rounds: Ada, Grace")
	assert.Contains(t, out, "round 1, winners a, g")
	assert.Contains(t, out, "won by Grace")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON).Journal(nil))
	assert.Equal(t, "[]\n", buf.String())
}
