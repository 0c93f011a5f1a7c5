package screens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/tui/components"
)

// SetupScreen lets the user pick a pack, the players and the number of rounds
type SetupScreen struct {
	// UI components
	container   *tview.Flex
	form        *tview.Form
	packs       *tview.DropDown
	rounds      *tview.InputField
	players     *tview.List
	preview     *components.Carousel
	validation  *tview.TextView
	statusBar   *tview.TextView
	playersHint string

	// Loaded roster, filled off the UI goroutine
	mu          sync.Mutex
	students    []data.Student
	packList    []data.FlashcardPack
	previewPack string
	previewDeck []data.Flashcard
	loaded      bool
	version     int // bumped whenever students or packs change
	rendered    int

	// Selection
	selectedPack string
	shownPack    string // pack whose cards the preview shows
	selected     map[string]bool
	roundsText   string
	verr         *arena.ValidationError

	app  host
	sync bool // set while widgets are rebuilt to mute change callbacks
}

// NewSetupScreen creates a new setup screen instance
func NewSetupScreen() *SetupScreen {
	ss := &SetupScreen{
		container:  tview.NewFlex(),
		form:       tview.NewForm(),
		packs:      tview.NewDropDown(),
		rounds:     tview.NewInputField(),
		players:    tview.NewList(),
		preview:    components.NewCarousel(),
		validation: tview.NewTextView(),
		statusBar:  tview.NewTextView(),
		selected:   make(map[string]bool),
		roundsText: strconv.Itoa(data.DefaultRounds),
	}

	ss.setupUI()
	return ss
}

func (ss *SetupScreen) setupUI() {
	ss.packs.SetLabel("Pack ").
		SetFieldWidth(30).
		SetSelectedFunc(func(_ string, index int) { ss.selectPack(index) })

	ss.rounds.SetLabel("Rounds ").
		SetFieldWidth(4).
		SetAcceptanceFunc(tview.InputFieldInteger).
		SetText(ss.roundsText).
		SetChangedFunc(ss.setRounds)

	ss.form.AddFormItem(ss.packs).
		AddFormItem(ss.rounds).
		AddButton("Start battle", ss.start).
		AddButton("Reload", ss.reload).
		AddButton("Leaderboard", func() {
			if ss.app != nil {
				_ = ss.app.ShowLeaderboard()
			}
		})
	ss.form.SetBorder(true).
		SetTitle("Battle").
		SetBorderColor(tcell.ColorBlue)

	ss.players.ShowSecondaryText(false).
		SetSelectedFunc(func(index int, _, _ string, _ rune) { ss.togglePlayerAt(index) })
	ss.players.SetBorder(true).
		SetTitle("Players (Enter to toggle)").
		SetBorderColor(tcell.ColorGreen)

	ss.validation.SetDynamicColors(true).
		SetWordWrap(true)
	ss.validation.SetBorder(true).SetTitle("Checks")

	ss.statusBar.SetDynamicColors(true)

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ss.form, 9, 0, true).
		AddItem(ss.validation, 0, 1, false)

	ss.container.SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(left, 0, 1, true).
			AddItem(ss.players, 0, 1, false).
			AddItem(ss.preview.GetPrimitive(), 0, 1, false), 0, 1, true).
		AddItem(ss.statusBar, 1, 0, false)

	ss.container.SetInputCapture(ss.handleInput)
}

// GetPrimitive returns the main container primitive
func (ss *SetupScreen) GetPrimitive() tview.Primitive {
	return ss.container
}

// OnEnter loads the roster the first time and redraws the selection
func (ss *SetupScreen) OnEnter(app any) error {
	h, err := hostOf(app)
	if err != nil {
		return err
	}
	ss.app = h

	ss.mu.Lock()
	loaded := ss.loaded
	ss.mu.Unlock()
	if !loaded {
		if d := h.Config().Arena.DefaultRounds; d > 0 {
			ss.roundsText = strconv.Itoa(d)
			ss.rounds.SetText(ss.roundsText)
		}
		ss.reload()
	}

	ss.Refresh()
	return nil
}

// OnExit is called when leaving the screen
func (ss *SetupScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (ss *SetupScreen) GetTitle() string {
	return "Setup"
}

// Refresh redraws the screen from the loaded roster and the flow state
func (ss *SetupScreen) Refresh() {
	ss.mu.Lock()
	students := ss.students
	packs := ss.packList
	version := ss.version
	deck := ss.previewDeck
	previewPack := ss.previewPack
	ss.mu.Unlock()

	if version != ss.rendered {
		ss.rendered = version
		ss.renderRoster(students, packs)
	}
	if previewPack != "" && previewPack == ss.selectedPack && ss.shownPack != previewPack {
		ss.shownPack = previewPack
		ss.preview.SetCards(deck)
	}
	ss.renderValidation()

	status := "[gray]Pick a pack, at least two players and the number of rounds[-]"
	if ss.app != nil && ss.app.Flow().State().Loading {
		status = "[yellow]Loading…[-]"
	}
	ss.statusBar.SetText(status)
}

// reload fetches students and packs again
func (ss *SetupScreen) reload() {
	if ss.app == nil {
		return
	}
	roster := ss.app.Roster()
	ss.app.Dispatch("Could not load students and packs", func(ctx context.Context) error {
		students, err := roster.ListStudents(ctx)
		if err != nil {
			return err
		}
		packs, err := roster.ListPacks(ctx)
		if err != nil {
			return err
		}
		ss.mu.Lock()
		ss.students = students
		ss.packList = packs
		ss.loaded = true
		ss.version++
		ss.mu.Unlock()
		return nil
	})
}

func (ss *SetupScreen) renderRoster(students []data.Student, packs []data.FlashcardPack) {
	ss.sync = true
	defer func() { ss.sync = false }()

	// Drop selections that no longer exist
	known := make(map[string]bool, len(students))
	for _, st := range students {
		known[st.ID] = true
	}
	for id := range ss.selected {
		if !known[id] {
			delete(ss.selected, id)
		}
	}

	options := make([]string, len(packs))
	current := -1
	for i, p := range packs {
		options[i] = p.Name
		if p.ID == ss.selectedPack {
			current = i
		}
	}
	if current < 0 {
		ss.selectedPack = ""
	}
	ss.packs.SetOptions(options, func(_ string, index int) { ss.selectPack(index) })
	ss.packs.SetCurrentOption(current)

	ss.renderPlayers(students)
}

func (ss *SetupScreen) renderPlayers(students []data.Student) {
	current := ss.players.GetCurrentItem()
	ss.players.Clear()
	for _, st := range students {
		mark := "○"
		if ss.selected[st.ID] {
			mark = "[green]●[-]"
		}
		ss.players.AddItem(fmt.Sprintf("%s %s (%.0f)", mark, tview.Escape(st.Name), st.EloRating), "", 0, nil)
	}
	if current < ss.players.GetItemCount() {
		ss.players.SetCurrentItem(current)
	}
	if len(students) == 0 {
		ss.players.AddItem("No students yet", "", 0, nil)
	}
}

func (ss *SetupScreen) renderValidation() {
	if ss.verr == nil {
		ss.validation.SetText("[gray]Ready when you are[-]")
		return
	}
	var lines []string
	for _, msg := range []string{ss.verr.Pack, ss.verr.Players, ss.verr.Rounds} {
		if msg != "" {
			lines = append(lines, "[red]• "+tview.Escape(msg)+"[-]")
		}
	}
	ss.validation.SetText(strings.Join(lines, "\n"))
}

// selectPack chooses the pack at index and loads its preview
func (ss *SetupScreen) selectPack(index int) {
	if ss.sync {
		return
	}
	ss.mu.Lock()
	if index < 0 || index >= len(ss.packList) {
		ss.mu.Unlock()
		return
	}
	packID := ss.packList[index].ID
	ss.mu.Unlock()

	if packID == ss.selectedPack {
		return
	}
	ss.selectedPack = packID
	ss.shownPack = ""
	ss.preview.SetCards(nil)
	if ss.verr != nil {
		ss.verr.Pack = ""
	}

	if ss.app == nil {
		return
	}
	roster := ss.app.Roster()
	ss.app.Dispatch("Could not load flashcards", func(ctx context.Context) error {
		cards, err := roster.PackFlashcards(ctx, packID)
		if err != nil {
			return err
		}
		ss.mu.Lock()
		ss.previewPack = packID
		ss.previewDeck = cards
		ss.mu.Unlock()
		return nil
	})
}

// togglePlayerAt adds or removes the student at index from the battle
func (ss *SetupScreen) togglePlayerAt(index int) {
	ss.mu.Lock()
	if index < 0 || index >= len(ss.students) {
		ss.mu.Unlock()
		return
	}
	id := ss.students[index].ID
	students := ss.students
	ss.mu.Unlock()

	if ss.selected[id] {
		delete(ss.selected, id)
	} else {
		ss.selected[id] = true
	}
	ss.renderPlayers(students)
}

func (ss *SetupScreen) setRounds(text string) {
	ss.roundsText = text
}

// Setup returns the current selection. Players keep roster order.
func (ss *SetupScreen) Setup() arena.Setup {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	setup := arena.Setup{PackID: ss.selectedPack}
	for _, st := range ss.students {
		if ss.selected[st.ID] {
			setup.PlayerIDs = append(setup.PlayerIDs, st.ID)
		}
	}
	setup.Rounds, _ = strconv.Atoi(strings.TrimSpace(ss.roundsText))
	return setup
}

// start validates the selection inline and begins the battle
func (ss *SetupScreen) start() {
	setup := ss.Setup()
	ss.verr = nil
	if err := setup.Validate(); err != nil {
		var verr *arena.ValidationError
		if errors.As(err, &verr) {
			ss.verr = verr
		}
		ss.renderValidation()
		return
	}
	ss.renderValidation()

	if ss.app == nil {
		return
	}
	flow := ss.app.Flow()
	ss.app.Dispatch("Could not start the battle", func(ctx context.Context) error {
		return flow.Start(ctx, setup)
	})
}

func (ss *SetupScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlS:
		ss.start()
		return nil
	case tcell.KeyLeft, tcell.KeyRight:
		// Page the pack preview unless a text field has focus
		if !ss.rounds.HasFocus() {
			if event.Key() == tcell.KeyLeft {
				ss.preview.Previous()
			} else {
				ss.preview.Next()
			}
			return nil
		}
	}
	return event
}
