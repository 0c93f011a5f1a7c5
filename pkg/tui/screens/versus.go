package screens

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/tui/components"
)

// VersusScreen introduces the next two players for a short moment before the
// battle screen takes over
type VersusScreen struct {
	container *tview.Flex
	banner    *tview.TextView
	progress  *components.Progress

	app    host
	cancel func()
}

// NewVersusScreen creates a new versus screen instance
func NewVersusScreen() *VersusScreen {
	vs := &VersusScreen{
		container: tview.NewFlex(),
		banner:    tview.NewTextView(),
		progress:  components.NewProgress(components.DefaultProgressConfig()),
	}

	vs.banner.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	vs.banner.SetBorder(true).
		SetTitle("Next round").
		SetBorderColor(tcell.ColorRed)

	vs.container.SetDirection(tview.FlexRow).
		AddItem(vs.banner, 0, 1, true).
		AddItem(vs.progress.GetPrimitive(), 4, 0, false)
	vs.container.SetInputCapture(vs.handleInput)
	return vs
}

// GetPrimitive returns the main container primitive
func (vs *VersusScreen) GetPrimitive() tview.Primitive {
	return vs.container
}

// OnEnter shows the pairing and schedules the battle screen
func (vs *VersusScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	vs.app = h
	vs.Refresh()

	vs.stopTimer()
	vs.cancel = h.After(h.Config().Arena.VersusDelay, vs.ready)
	return nil
}

// OnExit cancels a pending intro timer
func (vs *VersusScreen) OnExit(app any) error {
	vs.stopTimer()
	return nil
}

// GetTitle returns the screen title
func (vs *VersusScreen) GetTitle() string {
	return "Versus"
}

// Refresh redraws the pairing from the flow state
func (vs *VersusScreen) Refresh() {
	if vs.app == nil {
		return
	}
	st := vs.app.Flow().State()
	vs.banner.SetText(versusText(st))
	if st.Session != nil {
		vs.progress.Update(st.Session.RoundsCompleted, st.Session.NumRounds)
	}
}

func versusText(st arena.FlowState) string {
	if st.Match == nil {
		return "[gray]Waiting for the next match…[-]"
	}
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(playerLine(st.Session, st.Match.Player1ID, st.Match.Player1EloBefore))
	b.WriteString("\n\n[red::b]VS[-::-]\n\n")
	b.WriteString(playerLine(st.Session, st.Match.Player2ID, st.Match.Player2EloBefore))
	if st.Session != nil {
		fmt.Fprintf(&b, "\n\n\n[gray]Round %d of %d[-]", st.Session.RoundsCompleted+1, st.Session.NumRounds)
	}
	return b.String()
}

func playerLine(session *data.ArenaSession, id string, elo float64) string {
	return fmt.Sprintf("[yellow::b]%s[-::-]  [blue](%.0f)[-]", tview.Escape(playerName(session, id)), elo)
}

// ready ends the intro. A stale timer finds the flow elsewhere and does nothing.
func (vs *VersusScreen) ready() {
	vs.cancel = nil
	if vs.app == nil {
		return
	}
	if err := vs.app.Flow().VersusReady(); err != nil {
		return
	}
	vs.app.Sync()
}

func (vs *VersusScreen) stopTimer() {
	if vs.cancel != nil {
		vs.cancel()
		vs.cancel = nil
	}
}

func (vs *VersusScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEnter || event.Rune() == ' ' {
		vs.stopTimer()
		vs.ready()
		return nil
	}
	return event
}
