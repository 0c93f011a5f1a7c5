package screens

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/tui/components"
)

// BattleScreen shows the drawn flashcard between the two players and takes
// the winner of the round
type BattleScreen struct {
	// UI components
	container    *tview.Flex
	player1      *tview.TextView
	player2      *tview.TextView
	card         *tview.TextView
	controlPanel *tview.TextView
	statusBar    *tview.TextView
	progress     *components.Progress

	revealed bool
	shown    string // id of the displayed card

	app host
}

// NewBattleScreen creates a new battle screen instance
func NewBattleScreen() *BattleScreen {
	bs := &BattleScreen{
		container:    tview.NewFlex(),
		player1:      tview.NewTextView(),
		player2:      tview.NewTextView(),
		card:         tview.NewTextView(),
		controlPanel: tview.NewTextView(),
		statusBar:    tview.NewTextView(),
		progress:     components.NewProgress(components.DefaultProgressConfig()),
	}

	bs.setupUI()
	return bs
}

func (bs *BattleScreen) setupUI() {
	for i, panel := range []*tview.TextView{bs.player1, bs.player2} {
		panel.SetDynamicColors(true).
			SetTextAlign(tview.AlignCenter)
		panel.SetBorder(true).
			SetTitle(fmt.Sprintf("Player %d", i+1)).
			SetBorderColor(tcell.ColorBlue)
	}

	bs.card.SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	bs.card.SetBorder(true).
		SetTitle("Flashcard").
		SetBorderColor(tcell.ColorYellow)

	bs.controlPanel.SetDynamicColors(true)
	bs.controlPanel.SetBorder(true).SetTitle("Instructions")
	bs.controlPanel.SetText("[white]1[-] Player 1 wins  [white]2[-] Player 2 wins  [white]3[-] Both answered  [white]Tab[-] Show answer")

	bs.statusBar.SetDynamicColors(true)

	arenaRow := tview.NewFlex().
		AddItem(bs.player1, 0, 1, false).
		AddItem(bs.card, 0, 2, true).
		AddItem(bs.player2, 0, 1, false)

	bs.container.SetDirection(tview.FlexRow).
		AddItem(arenaRow, 0, 1, true).
		AddItem(bs.progress.GetPrimitive(), 4, 0, false).
		AddItem(bs.controlPanel, 3, 0, false).
		AddItem(bs.statusBar, 1, 0, false)

	bs.container.SetInputCapture(bs.handleInput)
}

// GetPrimitive returns the main container primitive
func (bs *BattleScreen) GetPrimitive() tview.Primitive {
	return bs.container
}

// OnEnter is called when the screen becomes active
func (bs *BattleScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	bs.app = h
	bs.Refresh()
	return nil
}

// OnExit is called when leaving the screen
func (bs *BattleScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (bs *BattleScreen) GetTitle() string {
	return "Battle"
}

// Refresh redraws players, card and status from the flow state
func (bs *BattleScreen) Refresh() {
	if bs.app == nil {
		return
	}
	st := bs.app.Flow().State()

	if st.Match != nil {
		bs.player1.SetText(fmt.Sprintf("\n[yellow::b]%s[-::-]\n\n[blue]%.0f[-]",
			tview.Escape(playerName(st.Session, st.Match.Player1ID)), st.Match.Player1EloBefore))
		bs.player2.SetText(fmt.Sprintf("\n[yellow::b]%s[-::-]\n\n[blue]%.0f[-]",
			tview.Escape(playerName(st.Session, st.Match.Player2ID)), st.Match.Player2EloBefore))
	}

	if st.Card == nil {
		bs.shown = ""
		bs.card.SetText("[gray]No flashcard drawn[-]")
	} else {
		if st.Card.ID != bs.shown {
			bs.shown = st.Card.ID
			bs.revealed = false
		}
		bs.card.SetText(components.FormatCard(*st.Card, bs.revealed))
	}

	if st.Session != nil {
		bs.progress.Update(st.Session.RoundsCompleted, st.Session.NumRounds)
	}

	switch {
	case st.Loading:
		bs.statusBar.SetText("[yellow]Saving the result…[-]")
	case st.Err != nil:
		bs.statusBar.SetText("[red]Last attempt failed, pick the winner again to retry[-]")
	default:
		bs.statusBar.SetText("[gray]Who answered correctly?[-]")
	}
}

// pickWinner submits the round unless input is currently gated
func (bs *BattleScreen) pickWinner(choice rune) {
	if bs.app == nil {
		return
	}
	flow := bs.app.Flow()
	st := flow.State()
	if st.Match == nil || st.Step != arena.StepBattle || !flow.CanPickWinner() {
		return
	}

	var winners []string
	switch choice {
	case '1':
		winners = []string{st.Match.Player1ID}
	case '2':
		winners = []string{st.Match.Player2ID}
	case '3':
		winners = []string{st.Match.Player1ID, st.Match.Player2ID}
	default:
		return
	}

	bs.app.Dispatch("Could not record the winner", func(ctx context.Context) error {
		return flow.SelectWinner(ctx, winners)
	})
	bs.Refresh()
}

func (bs *BattleScreen) toggleAnswer() {
	bs.revealed = !bs.revealed
	bs.Refresh()
}

func (bs *BattleScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyTab:
		bs.toggleAnswer()
		return nil
	}

	switch event.Rune() {
	case '1', '2', '3':
		bs.pickWinner(event.Rune())
		return nil
	case ' ':
		bs.toggleAnswer()
		return nil
	}
	return event
}
