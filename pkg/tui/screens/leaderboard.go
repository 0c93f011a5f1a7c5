package screens

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/standings"
)

// LeaderboardScreen ranks every student by rating. Selecting a row loads the
// student's history to show streaks and streak achievements.
type LeaderboardScreen struct {
	container *tview.Flex
	table     *tview.Table
	details   *tview.TextView
	hint      *tview.TextView

	mu       sync.Mutex
	ranked   []standings.RankedStudent
	history  map[string][]data.MatchHistoryItem
	selected string

	app host
}

// NewLeaderboardScreen creates a new leaderboard screen instance
func NewLeaderboardScreen() *LeaderboardScreen {
	ls := &LeaderboardScreen{
		container: tview.NewFlex(),
		table:     tview.NewTable(),
		details:   tview.NewTextView(),
		hint:      tview.NewTextView(),
		history:   make(map[string][]data.MatchHistoryItem),
	}

	ls.table.SetSelectable(true, false).
		SetFixed(1, 0).
		SetSelectedFunc(func(row, _ int) { ls.selectRow(row) })
	ls.table.SetBorder(true).
		SetTitle("Leaderboard").
		SetBorderColor(tcell.ColorYellow)

	ls.details.SetDynamicColors(true).
		SetWordWrap(true)
	ls.details.SetBorder(true).SetTitle("Student")

	ls.hint.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]Enter Details  r Reload  Esc Back[-]")

	ls.container.SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(ls.table, 0, 2, true).
			AddItem(ls.details, 0, 1, false), 0, 1, true).
		AddItem(ls.hint, 1, 0, false)
	ls.container.SetInputCapture(ls.handleInput)
	return ls
}

// GetPrimitive returns the main container primitive
func (ls *LeaderboardScreen) GetPrimitive() tview.Primitive {
	return ls.container
}

// OnEnter reloads the roster every time the screen is shown
func (ls *LeaderboardScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	ls.app = h
	ls.reload()
	ls.Refresh()
	return nil
}

// OnExit is called when leaving the screen
func (ls *LeaderboardScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (ls *LeaderboardScreen) GetTitle() string {
	return "Leaderboard"
}

func (ls *LeaderboardScreen) reload() {
	if ls.app == nil {
		return
	}
	roster := ls.app.Roster()
	ls.app.Dispatch("Could not load the leaderboard", func(ctx context.Context) error {
		students, err := roster.ListStudents(ctx)
		if err != nil {
			return err
		}
		ls.mu.Lock()
		ls.ranked = standings.RankStudents(students)
		ls.history = make(map[string][]data.MatchHistoryItem)
		ls.mu.Unlock()
		return nil
	})
}

var leaderboardHeaders = []string{"#", "Name", "ELO", "W/L", "Win rate", "Achievements"}

// Refresh redraws the table and the details panel
func (ls *LeaderboardScreen) Refresh() {
	ls.mu.Lock()
	ranked := ls.ranked
	selected := ls.selected
	history, haveHistory := ls.history[selected]
	ls.mu.Unlock()

	ls.table.Clear()
	for col, h := range leaderboardHeaders {
		ls.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, r := range ranked {
		st := r.Student
		cells := []string{
			strconv.Itoa(r.Rank),
			tview.Escape(st.Name),
			fmt.Sprintf("%.0f", st.EloRating),
			fmt.Sprintf("%d/%d", st.Wins, st.Losses),
			fmt.Sprintf("%.1f%%", st.WinRate*100),
			achievementTitles(standings.Evaluate(st, nil)),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if col == 2 || col == 4 {
				cell.SetAlign(tview.AlignRight)
			}
			ls.table.SetCell(i+1, col, cell)
		}
	}
	if len(ranked) == 0 {
		ls.table.SetCell(1, 1, tview.NewTableCell("No students yet").SetSelectable(false))
	}

	ls.details.SetText(ls.detailsText(ranked, selected, history, haveHistory))
}

func (ls *LeaderboardScreen) detailsText(ranked []standings.RankedStudent, selected string, history []data.MatchHistoryItem, haveHistory bool) string {
	var student *data.Student
	for i := range ranked {
		if ranked[i].Student.ID == selected {
			student = &ranked[i].Student
			break
		}
	}
	if student == nil {
		return "[gray]Select a student for details[-]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow::b]%s[-::-]\n%.0f ELO, %d matches\n", tview.Escape(student.Name), student.EloRating, student.TotalMatches)
	if !haveHistory {
		b.WriteString("\n[gray]Loading history…[-]")
		return b.String()
	}

	streaks := standings.LongestStreaks(history)
	fmt.Fprintf(&b, "\nLongest win streak: %d\nLongest losing streak: %d\n", streaks.LongestWin, streaks.LongestLoss)
	if streaks.Current > 0 {
		fmt.Fprintf(&b, "Current run: %d %s\n", streaks.Current, streaks.CurrentKind)
	}

	b.WriteString("\n[green]Achievements[-]\n")
	unlocked := standings.Evaluate(*student, history)
	if len(unlocked) == 0 {
		b.WriteString("[gray]None yet[-]\n")
	}
	for _, a := range unlocked {
		fmt.Fprintf(&b, "[%s]%s[-] %s\n", tagColor(a.Color), a.Title, tview.Escape(a.Description))
	}
	return b.String()
}

// tagColor maps catalog colors to names tview understands
func tagColor(c string) string {
	switch c {
	case "dark", "black":
		return "gray"
	case "grape":
		return "purple"
	case "":
		return "white"
	}
	return c
}

func achievementTitles(list []standings.Achievement) string {
	titles := make([]string, len(list))
	for i, a := range list {
		titles[i] = a.Title
	}
	return strings.Join(titles, ", ")
}

// selectRow loads the history of the student in the given table row
func (ls *LeaderboardScreen) selectRow(row int) {
	ls.mu.Lock()
	if row < 1 || row > len(ls.ranked) {
		ls.mu.Unlock()
		return
	}
	id := ls.ranked[row-1].Student.ID
	ls.selected = id
	_, cached := ls.history[id]
	ls.mu.Unlock()

	ls.Refresh()
	if cached || ls.app == nil {
		return
	}
	roster := ls.app.Roster()
	ls.app.Dispatch("Could not load match history", func(ctx context.Context) error {
		items, err := roster.StudentHistory(ctx, id)
		if err != nil {
			return err
		}
		ls.mu.Lock()
		ls.history[id] = items
		ls.mu.Unlock()
		return nil
	})
}

func (ls *LeaderboardScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEsc || event.Rune() == 'q' {
		if ls.app != nil {
			ls.app.Sync()
		}
		return nil
	}
	if event.Rune() == 'r' {
		ls.reload()
		return nil
	}
	return event
}
