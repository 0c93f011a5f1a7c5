package screens

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/standings"
)

// RoundResultScreen summarizes the rating changes of the round just played
type RoundResultScreen struct {
	container *tview.Flex
	summary   *tview.TextView
	hint      *tview.TextView

	app host
}

// NewRoundResultScreen creates a new round result screen instance
func NewRoundResultScreen() *RoundResultScreen {
	rs := &RoundResultScreen{
		container: tview.NewFlex(),
		summary:   tview.NewTextView(),
		hint:      tview.NewTextView(),
	}

	rs.summary.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	rs.summary.SetBorder(true).
		SetTitle("Round result").
		SetBorderColor(tcell.ColorGreen)
	rs.hint.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]Press Enter for the next round[-]")

	rs.container.SetDirection(tview.FlexRow).
		AddItem(rs.summary, 0, 1, true).
		AddItem(rs.hint, 1, 0, false)
	rs.container.SetInputCapture(rs.handleInput)
	return rs
}

// GetPrimitive returns the main container primitive
func (rs *RoundResultScreen) GetPrimitive() tview.Primitive {
	return rs.container
}

// OnEnter is called when the screen becomes active
func (rs *RoundResultScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	rs.app = h
	rs.Refresh()
	return nil
}

// OnExit is called when leaving the screen
func (rs *RoundResultScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (rs *RoundResultScreen) GetTitle() string {
	return "Round result"
}

// Refresh redraws the summary of the last round
func (rs *RoundResultScreen) Refresh() {
	if rs.app == nil {
		return
	}
	rs.summary.SetText(roundText(rs.app.Flow().State().LastRound))
}

func roundText(last *arena.RoundOutcome) string {
	if last == nil {
		return "[gray]No round played yet[-]"
	}
	m := last.Match
	session := &last.Session

	var b strings.Builder
	b.WriteString("\n")
	for _, side := range []struct {
		id     string
		before float64
		after  *float64
	}{
		{m.Player1ID, m.Player1EloBefore, m.Player1EloAfter},
		{m.Player2ID, m.Player2EloBefore, m.Player2EloAfter},
	} {
		badge := "[gray]missed[-]"
		if m.IsWinner(side.id) {
			badge = "[green::b]correct[-::-]"
		}
		fmt.Fprintf(&b, "\n[yellow::b]%s[-::-]  %s\n", tview.Escape(playerName(session, side.id)), badge)
		if side.after == nil {
			fmt.Fprintf(&b, "%.0f → [gray]pending[-]\n", side.before)
			continue
		}
		fmt.Fprintf(&b, "%.0f → %.0f  (%s)\n", side.before, *side.after, signedElo(*side.after-side.before))
	}
	fmt.Fprintf(&b, "\n[gray]%d of %d rounds played[-]", last.Session.RoundsCompleted, last.Session.NumRounds)
	return b.String()
}

func (rs *RoundResultScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEnter || event.Rune() == ' ' {
		if rs.app != nil && rs.app.Flow().ContinueFromRoundResult() == nil {
			rs.app.Sync()
		}
		return nil
	}
	return event
}

// FinalResultScreen shows the standings once every round is played
type FinalResultScreen struct {
	container *tview.Flex
	table     *tview.Table
	summary   *tview.TextView
	hint      *tview.TextView

	app host
}

// NewFinalResultScreen creates a new final result screen instance
func NewFinalResultScreen() *FinalResultScreen {
	fs := &FinalResultScreen{
		container: tview.NewFlex(),
		table:     tview.NewTable(),
		summary:   tview.NewTextView(),
		hint:      tview.NewTextView(),
	}

	fs.table.SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	fs.table.SetBorder(true).
		SetTitle("Final standings").
		SetBorderColor(tcell.ColorYellow)
	fs.summary.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	fs.hint.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]n New battle  l Leaderboard[-]")

	fs.container.SetDirection(tview.FlexRow).
		AddItem(fs.summary, 3, 0, false).
		AddItem(fs.table, 0, 1, true).
		AddItem(fs.hint, 1, 0, false)
	fs.container.SetInputCapture(fs.handleInput)
	return fs
}

// GetPrimitive returns the main container primitive
func (fs *FinalResultScreen) GetPrimitive() tview.Primitive {
	return fs.container
}

// OnEnter is called when the screen becomes active
func (fs *FinalResultScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	fs.app = h
	fs.Refresh()
	return nil
}

// OnExit is called when leaving the screen
func (fs *FinalResultScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (fs *FinalResultScreen) GetTitle() string {
	return "Final result"
}

var standingsHeaders = []string{"#", "Name", "ELO", "Change", "W", "L", "Fights"}

// Refresh fills the standings table, best rating first
func (fs *FinalResultScreen) Refresh() {
	if fs.app == nil {
		return
	}
	st := fs.app.Flow().State()

	fs.table.Clear()
	for col, h := range standingsHeaders {
		fs.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	var ranked []data.ArenaStudentStats
	if st.Results != nil {
		ranked = standings.RankArena(st.Results.Rankings)
	}
	for i, r := range ranked {
		row := i + 1
		cells := []string{
			strconv.Itoa(row),
			tview.Escape(r.Name),
			fmt.Sprintf("%.0f", r.EloRating),
			signedElo(r.EloChange),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Losses),
			strconv.Itoa(r.FightsPlayed),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if col > 1 {
				cell.SetAlign(tview.AlignRight)
			}
			fs.table.SetCell(row, col, cell)
		}
	}

	if len(ranked) == 0 {
		fs.summary.SetText("\n[gray]No results available[-]")
		return
	}
	fs.summary.SetText(fmt.Sprintf("\n[yellow::b]%s[-::-] wins the arena!", tview.Escape(ranked[0].Name)))
}

// Rows returns the number of ranked players shown
func (fs *FinalResultScreen) Rows() int {
	return fs.table.GetRowCount() - 1
}

func (fs *FinalResultScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if fs.app == nil {
		return event
	}
	switch event.Rune() {
	case 'n':
		fs.app.Flow().Reset()
		fs.app.Sync()
		return nil
	case 'l':
		_ = fs.app.ShowLeaderboard()
		return nil
	}
	return event
}
