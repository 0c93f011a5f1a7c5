package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fatih/color"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/standings"
)

const (
	dateLayout = "2006-01-02 15:04"
	textWidth  = 48
)

func elo(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

func signed(v float64) string {
	return fmt.Sprintf("%+.0f", v)
}

func date(ts data.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(dateLayout)
}

// delta colors rating changes green or red
func delta(v float64) cell {
	switch {
	case v > 0:
		return colored(signed(v), color.FgGreen)
	case v < 0:
		return colored(signed(v), color.FgRed)
	default:
		return plain(signed(v))
	}
}

// rankCell highlights the podium
func rankCell(rank int) cell {
	switch rank {
	case 1:
		return colored(strconv.Itoa(rank), color.FgYellow, color.Bold)
	case 2, 3:
		return colored(strconv.Itoa(rank), color.FgCyan)
	default:
		return plain(strconv.Itoa(rank))
	}
}

// Leaderboard lists ranked students
func (p *Printer) Leaderboard(ranked []standings.RankedStudent) error {
	s := sheet{
		title:   "Leaderboard",
		headers: []string{"rank", "name", "elo", "wins", "losses", "matches", "win_rate"},
		empty:   "No students yet",
	}
	for _, r := range ranked {
		s.rows = append(s.rows, []cell{
			rankCell(r.Rank),
			plain(r.Student.Name),
			plain(elo(r.Student.EloRating)),
			plain(strconv.Itoa(r.Student.Wins)),
			plain(strconv.Itoa(r.Student.Losses)),
			plain(strconv.Itoa(r.Student.TotalMatches)),
			plain(percent(r.Student.WinRate)),
		})
	}
	if ranked == nil {
		ranked = []standings.RankedStudent{}
	}
	return p.emit(ranked, s)
}

// Roster lists students alphabetically using the printer's collation
func (p *Printer) Roster(students []data.Student) error {
	sorted := make([]data.Student, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return p.collator.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	s := sheet{
		title:   "Students",
		headers: []string{"id", "name", "elo", "wins", "losses", "created"},
		empty:   "No students yet",
	}
	for _, st := range sorted {
		s.rows = append(s.rows, []cell{
			plain(st.ID),
			plain(st.Name),
			plain(elo(st.EloRating)),
			plain(strconv.Itoa(st.Wins)),
			plain(strconv.Itoa(st.Losses)),
			plain(date(st.CreatedAt)),
		})
	}
	return p.emit(sorted, s)
}

// Student prints a single student record
func (p *Printer) Student(st data.Student) error {
	s := sheet{
		headers: []string{"id", "name", "elo", "wins", "losses", "matches", "win_rate", "avatar_url"},
		rows: [][]cell{{
			plain(st.ID),
			plain(st.Name),
			plain(elo(st.EloRating)),
			plain(strconv.Itoa(st.Wins)),
			plain(strconv.Itoa(st.Losses)),
			plain(strconv.Itoa(st.TotalMatches)),
			plain(percent(st.WinRate)),
			plain(st.AvatarURL),
		}},
	}
	return p.emit(st, s)
}

// Standings lists the final standings of an arena session, best first
func (p *Printer) Standings(results data.ArenaResults) error {
	ranked := standings.RankArena(results.Rankings)
	s := sheet{
		title:   "Final standings",
		headers: []string{"rank", "name", "elo", "change", "wins", "losses", "fights"},
		empty:   "No participants",
	}
	for i, r := range ranked {
		s.rows = append(s.rows, []cell{
			rankCell(i + 1),
			plain(r.Name),
			plain(elo(r.EloRating)),
			delta(r.EloChange),
			plain(strconv.Itoa(r.Wins)),
			plain(strconv.Itoa(r.Losses)),
			plain(strconv.Itoa(r.FightsPlayed)),
		})
	}
	return p.emit(data.ArenaResults{Rankings: ranked, Matches: results.Matches}, s)
}

// History lists a student's matches in the order given
func (p *Printer) History(items []data.MatchHistoryItem) error {
	s := sheet{
		title:   "Match history",
		headers: []string{"date", "opponent", "result", "elo_before", "elo_after", "change"},
		empty:   "No matches played yet",
	}
	for _, it := range items {
		result := plain(string(it.Result))
		switch it.Result {
		case data.ResultWin:
			result = colored(string(it.Result), color.FgGreen)
		case data.ResultLoss:
			result = colored(string(it.Result), color.FgRed)
		}
		s.rows = append(s.rows, []cell{
			plain(date(it.Date)),
			plain(it.OpponentName),
			result,
			plain(elo(it.OldElo)),
			plain(elo(it.NewElo)),
			delta(it.EloChange),
		})
	}
	if items == nil {
		items = []data.MatchHistoryItem{}
	}
	return p.emit(items, s)
}

// achievementRow is the exported form of an unlocked achievement
type achievementRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AchievedAt  string `json:"achieved_at,omitempty"`
}

// Achievements lists a student's awarded achievements. Awards the backend
// does not know yet but the local catalog considers unlocked are appended
// without a date.
func (p *Printer) Achievements(awarded []data.StudentAchievement, unlocked []standings.Achievement) error {
	rows := make([]achievementRow, 0, len(awarded)+len(unlocked))
	seen := make(map[string]bool)
	for _, a := range awarded {
		seen[a.Achievement.Code] = true
		rows = append(rows, achievementRow{
			ID:          a.Achievement.Code,
			Title:       a.Achievement.Title,
			Description: a.Achievement.Description,
			AchievedAt:  date(a.AchievedAt),
		})
	}
	for _, a := range unlocked {
		if seen[a.ID] {
			continue
		}
		rows = append(rows, achievementRow{ID: a.ID, Title: a.Title, Description: a.Description})
	}

	s := sheet{
		title:   "Achievements",
		headers: []string{"id", "title", "description", "achieved"},
		empty:   "No achievements unlocked yet",
	}
	for _, r := range rows {
		s.rows = append(s.rows, []cell{
			plain(r.ID),
			colored(r.Title, color.FgMagenta, color.Bold),
			plain(r.Description),
			plain(r.AchievedAt),
		})
	}
	return p.emit(rows, s)
}

// Packs lists flashcard packs
func (p *Printer) Packs(packs []data.FlashcardPack) error {
	s := sheet{
		title:   "Flashcard packs",
		headers: []string{"id", "name", "description", "created"},
		empty:   "No packs yet",
	}
	for _, pk := range packs {
		s.rows = append(s.rows, []cell{
			plain(pk.ID),
			plain(pk.Name),
			plain(Truncate(pk.Description, textWidth)),
			plain(date(pk.CreatedAt)),
		})
	}
	if packs == nil {
		packs = []data.FlashcardPack{}
	}
	return p.emit(packs, s)
}

// Cards lists flashcards. Tables show markup-free text; CSV and JSON keep
// the stored text.
func (p *Printer) Cards(cards []data.Flashcard) error {
	s := sheet{
		title:   "Flashcards",
		headers: []string{"id", "pack_id", "difficulty", "question", "answer", "success_rate"},
		empty:   "No flashcards yet",
	}
	for _, c := range cards {
		question, answer := c.Question, c.Answer
		if p.format == FormatTable || p.format == "" {
			question = Truncate(c.PlainQuestion(), textWidth)
			answer = Truncate(c.PlainAnswer(), textWidth)
		}
		s.rows = append(s.rows, []cell{
			plain(c.ID),
			plain(c.PackID),
			difficultyCell(c.Difficulty),
			plain(question),
			plain(answer),
			plain(percent(c.SuccessRate)),
		})
	}
	if cards == nil {
		cards = []data.Flashcard{}
	}
	return p.emit(cards, s)
}

func difficultyCell(d data.Difficulty) cell {
	switch d {
	case data.DifficultyEasy:
		return colored(string(d), color.FgGreen)
	case data.DifficultyHard:
		return colored(string(d), color.FgRed)
	default:
		return colored(string(d), color.FgYellow)
	}
}

// ImportResult summarizes a bulk import
func (p *Printer) ImportResult(r data.BulkImportResult) error {
	s := sheet{
		title:   "Import",
		headers: []string{"total", "successful", "failed"},
		rows: [][]cell{{
			plain(strconv.Itoa(r.Total)),
			colored(strconv.Itoa(r.Successful), color.FgGreen),
			colored(strconv.Itoa(r.Failed), color.FgRed),
		}},
	}
	if err := p.emit(r, s); err != nil {
		return err
	}
	if p.format != FormatTable && p.format != "" {
		return nil
	}
	warn := color.New(color.FgYellow)
	p.paint(warn)
	for _, msg := range r.Errors {
		if _, err := fmt.Fprintln(p.w, warn.Sprint(msg)); err != nil {
			return err
		}
	}
	return nil
}
