// Package tui provides the terminal user interface for flashcard battles.
// It implements the main application structure with screen management, keyboard
// shortcuts, error dialogs and the bridge between the battle flow and its screens.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/api"
	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
	"github.com/pashagolub/flasharena/pkg/tui/screens"
)

// ScreenType represents different screens in the TUI application
type ScreenType int

const (
	ScreenSetup ScreenType = iota
	ScreenVersus
	ScreenBattle
	ScreenRoundResult
	ScreenFinalResult
	ScreenLeaderboard
	ScreenHelp
)

// String returns the string representation of ScreenType
func (s ScreenType) String() string {
	switch s {
	case ScreenSetup:
		return "setup"
	case ScreenVersus:
		return "versus"
	case ScreenBattle:
		return "battle"
	case ScreenRoundResult:
		return "round-result"
	case ScreenFinalResult:
		return "final-result"
	case ScreenLeaderboard:
		return "leaderboard"
	case ScreenHelp:
		return "help"
	default:
		return "unknown"
	}
}

// stepScreens maps every battle step to the screen that renders it
var stepScreens = map[arena.Step]ScreenType{
	arena.StepSetup:       ScreenSetup,
	arena.StepVersus:      ScreenVersus,
	arena.StepBattle:      ScreenBattle,
	arena.StepRoundResult: ScreenRoundResult,
	arena.StepFinalResult: ScreenFinalResult,
}

// isStepScreen reports whether s renders a battle step
func isStepScreen(s ScreenType) bool {
	for _, st := range stepScreens {
		if st == s {
			return true
		}
	}
	return false
}

// Screen interface defines the contract for all TUI screens
type Screen interface {
	// GetPrimitive returns the tview.Primitive for this screen
	GetPrimitive() tview.Primitive

	// OnEnter is called when the screen becomes active
	OnEnter(app any) error

	// OnExit is called when leaving the screen
	OnExit(app any) error

	// GetTitle returns the screen title for display
	GetTitle() string
}

// Backend is everything the TUI needs from the battle server. *api.Client
// satisfies it.
type Backend interface {
	arena.ArenaAPI
	screens.Roster
}

// AppState represents the current application state
type AppState struct {
	mu             sync.RWMutex
	currentScreen  ScreenType
	previousScreen ScreenType
	entered        bool // a screen has been entered at least once
	isRunning      bool
	lastError      string
	lastErrorTime  *time.Time
}

const errorDialogPage = "error-dialog"

// App represents the main TUI application
type App struct {
	tviewApp *tview.Application
	pages    *tview.Pages
	header   *tview.TextView
	footer   *tview.TextView
	state    *AppState
	screens  map[ScreenType]Screen
	flow     *arena.Flow
	roster   screens.Roster
	config   data.Config
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	retry    func() // re-runs the operation behind the visible error dialog

	// Scheduling hooks, synchronous in tests
	spawn func(fn func())
	queue func(fn func())
	after func(d time.Duration, fn func()) (cancel func())
}

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func(app *App) error
}

// Global key bindings available across all screens. Letters are left to the
// screens so they never clash with text input.
var globalKeyBindings = []KeyBinding{
	{Key: tcell.KeyCtrlC, Description: "Exit", Handler: (*App).Exit},
	{Key: tcell.KeyCtrlN, Description: "New battle", Handler: (*App).NewBattle},
	{Key: tcell.KeyCtrlL, Description: "Leaderboard", Handler: (*App).ShowLeaderboard},
	{Key: tcell.KeyF1, Description: "Help", Handler: (*App).ShowHelp},
}

// NewApp creates a new TUI application instance driving a battle flow over
// backend
func NewApp(config data.Config, backend Backend, logger *zap.Logger) (*App, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	logger = logging.OrNop(logger)

	ctx, cancel := context.WithCancel(context.Background())

	manager := arena.NewManager(backend, logger)
	app := &App{
		tviewApp: tview.NewApplication(),
		pages:    tview.NewPages(),
		header:   tview.NewTextView(),
		footer:   tview.NewTextView(),
		state: &AppState{
			currentScreen: ScreenSetup,
		},
		screens: make(map[ScreenType]Screen),
		flow: arena.NewFlow(manager, backend,
			arena.WithRoundResults(config.Arena.ShowRoundResults),
			arena.WithFlowLogger(logger)),
		roster: backend,
		config: config,
		log:    logger.Named("tui"),
		ctx:    ctx,
		cancel: cancel,
	}
	app.spawn = func(fn func()) { go fn() }
	app.queue = func(fn func()) { app.tviewApp.QueueUpdateDraw(fn) }
	app.after = func(d time.Duration, fn func()) func() {
		t := time.AfterFunc(d, func() { app.queue(fn) })
		return func() { t.Stop() }
	}

	if err := app.setupUI(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup UI: %w", err)
	}
	if err := app.registerDefaultScreens(); err != nil {
		cancel()
		return nil, err
	}

	return app, nil
}

// setupUI initializes the UI components and layout
func (a *App) setupUI() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Configure header
	a.header.SetBorder(true).
		SetTitle("Flashcard Arena").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkBlue)
	a.header.SetTextColor(tcell.ColorWhite)

	// Configure footer with help text
	a.footer.SetBorder(true).
		SetTitle("Keyboard Shortcuts").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkGreen)
	a.footer.SetTextColor(tcell.ColorWhite)

	a.updateFooter()

	mainLayout := tview.NewFlex().SetDirection(tview.FlexRow)
	mainLayout.AddItem(a.header, 3, 0, false)
	mainLayout.AddItem(a.pages, 0, 1, true)
	mainLayout.AddItem(a.footer, 3, 0, false)

	mainLayout.SetInputCapture(a.handleGlobalInput)

	a.tviewApp.SetRoot(mainLayout, true)
	a.tviewApp.EnableMouse(true)
	a.tviewApp.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.updateHeader()
		return false
	})

	return nil
}

func (a *App) registerDefaultScreens() error {
	defaults := map[ScreenType]Screen{
		ScreenSetup:       screens.NewSetupScreen(),
		ScreenVersus:      screens.NewVersusScreen(),
		ScreenBattle:      screens.NewBattleScreen(),
		ScreenRoundResult: screens.NewRoundResultScreen(),
		ScreenFinalResult: screens.NewFinalResultScreen(),
		ScreenLeaderboard: screens.NewLeaderboardScreen(),
		ScreenHelp:        NewHelpScreen(),
	}
	for st, screen := range defaults {
		if err := a.RegisterScreen(st, screen); err != nil {
			return fmt.Errorf("failed to register %s screen: %w", st, err)
		}
	}
	return nil
}

// RegisterScreen registers a screen with the application, replacing any
// screen of the same type
func (a *App) RegisterScreen(screenType ScreenType, screen Screen) error {
	if screen == nil {
		return fmt.Errorf("screen cannot be nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.screens[screenType] = screen
	a.pages.AddPage(screenType.String(), screen.GetPrimitive(), true, false)

	return nil
}

// NavigateTo switches to the specified screen
func (a *App) NavigateTo(screenType ScreenType) error {
	a.mu.RLock()
	screen, exists := a.screens[screenType]
	a.mu.RUnlock()
	if !exists {
		return fmt.Errorf("screen %s not registered", screenType.String())
	}

	a.state.mu.Lock()
	previousScreen := a.state.currentScreen
	entered := a.state.entered
	a.state.mu.Unlock()

	a.mu.RLock()
	currentScreen, hasCurrentScreen := a.screens[previousScreen]
	a.mu.RUnlock()

	// Exit current screen (without lock to avoid deadlock)
	if entered && hasCurrentScreen {
		if err := currentScreen.OnExit(a); err != nil {
			return fmt.Errorf("failed to exit screen %s: %w", previousScreen.String(), err)
		}
	}

	a.state.mu.Lock()
	a.state.previousScreen = previousScreen
	a.state.currentScreen = screenType
	a.state.entered = true
	a.state.mu.Unlock()

	// Enter new screen (without lock to avoid deadlock)
	if err := screen.OnEnter(a); err != nil {
		a.state.mu.Lock()
		a.state.currentScreen = previousScreen
		a.state.mu.Unlock()
		return fmt.Errorf("failed to enter screen %s: %w", screenType.String(), err)
	}

	a.pages.SwitchToPage(screenType.String())
	// An open error dialog stays on top until dismissed
	if a.pages.HasPage(errorDialogPage) {
		a.pages.ShowPage(errorDialogPage)
	}
	return nil
}

// GoBack returns to the previously shown screen
func (a *App) GoBack() error {
	a.state.mu.RLock()
	previous := a.state.previousScreen
	a.state.mu.RUnlock()
	return a.NavigateTo(previous)
}

// Sync shows the screen of the current battle step, refreshing it when it
// is already shown
func (a *App) Sync() {
	target := stepScreens[a.flow.Step()]
	if a.GetCurrentScreen() == target && a.hasEntered() {
		a.refresh(target)
		return
	}
	if err := a.NavigateTo(target); err != nil {
		a.log.Error("failed to show battle step", zap.Stringer("screen", target), zap.Error(err))
	}
}

// settle updates the display after an operation finished. Screens outside
// the battle steps, such as the leaderboard, stay where they are.
func (a *App) settle() {
	current := a.GetCurrentScreen()
	if isStepScreen(current) {
		a.Sync()
		return
	}
	a.refresh(current)
}

func (a *App) refresh(screenType ScreenType) {
	a.mu.RLock()
	screen := a.screens[screenType]
	a.mu.RUnlock()
	if r, ok := screen.(interface{ Refresh() }); ok {
		r.Refresh()
	}
}

// Dispatch runs op off the UI goroutine. Once it returns the display is
// synced with the battle flow; a failure opens an error dialog offering to
// run op again with the same arguments.
func (a *App) Dispatch(title string, op func(ctx context.Context) error) {
	a.spawn(func() {
		err := op(a.ctx)
		a.queue(func() { a.finish(title, op, err) })
	})
}

func (a *App) finish(title string, op func(ctx context.Context) error, err error) {
	a.settle()

	switch {
	case err == nil:
		return
	case errors.Is(err, arena.ErrStaleResponse), errors.Is(err, context.Canceled):
		a.log.Debug("dropped outdated result", zap.String("operation", title), zap.Error(err))
		return
	case errors.Is(err, arena.ErrConcurrentOperation), errors.Is(err, arena.ErrWinnerNotAllowed):
		a.log.Debug("ignored input while busy", zap.String("operation", title))
		return
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		a.log.Warn(title, zap.String("call", netErr.Describe()))
	} else {
		a.log.Warn(title, zap.Error(err))
	}
	a.showErrorDialog(title, ErrorText(err), func() { a.Dispatch(title, op) })
}

// After runs fn on the UI goroutine once d has passed. The returned function
// cancels a call that has not started yet.
func (a *App) After(d time.Duration, fn func()) func() {
	return a.after(d, fn)
}

// Flow returns the battle flow driven by the screens
func (a *App) Flow() *arena.Flow {
	return a.flow
}

// Roster returns the backend used to list students and packs
func (a *App) Roster() screens.Roster {
	return a.roster
}

// Config returns the application configuration
func (a *App) Config() data.Config {
	return a.config
}

// ShowLeaderboard displays the leaderboard screen
func (a *App) ShowLeaderboard() error {
	return a.NavigateTo(ScreenLeaderboard)
}

// ShowHelp displays the help screen
func (a *App) ShowHelp() error {
	if a.GetCurrentScreen() == ScreenHelp {
		return nil
	}
	return a.NavigateTo(ScreenHelp)
}

// NewBattle abandons the current battle and returns to setup
func (a *App) NewBattle() error {
	a.flow.Reset()
	a.dismissError(false)
	return a.NavigateTo(ScreenSetup)
}

// Exit stops the application and aborts requests in flight
func (a *App) Exit() error {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()

	a.state.isRunning = false
	a.cancel()
	a.tviewApp.Stop()

	return nil
}

// Run starts the TUI application on the setup screen
func (a *App) Run() error {
	a.state.mu.Lock()
	a.state.isRunning = true
	a.state.mu.Unlock()

	if err := a.NavigateTo(ScreenSetup); err != nil {
		return fmt.Errorf("failed to navigate to setup screen: %w", err)
	}

	return a.tviewApp.Run()
}

// Stop gracefully stops the application
func (a *App) Stop() {
	if a.IsRunning() {
		_ = a.Exit()
	}
}

// GetTViewApp returns the underlying tview application for advanced usage
func (a *App) GetTViewApp() *tview.Application {
	return a.tviewApp
}

// handleGlobalInput handles global keyboard shortcuts
func (a *App) handleGlobalInput(event *tcell.EventKey) *tcell.EventKey {
	for _, binding := range globalKeyBindings {
		if (binding.Key != tcell.KeyRune && event.Key() == binding.Key) ||
			(binding.Key == tcell.KeyRune && event.Rune() == binding.Rune) {
			if err := binding.Handler(a); err != nil {
				a.log.Warn("shortcut failed", zap.String("shortcut", binding.Description), zap.Error(err))
			}
			return nil
		}
	}

	return event
}

// updateHeader updates the header text with current screen and battle information
func (a *App) updateHeader() {
	a.state.mu.RLock()
	currentScreen := a.state.currentScreen
	lastError := a.state.lastError
	a.state.mu.RUnlock()

	a.mu.RLock()
	screen, exists := a.screens[currentScreen]
	a.mu.RUnlock()
	if !exists {
		return
	}

	st := a.flow.State()
	battleInfo := ""
	if st.Session != nil {
		round := st.Session.RoundsCompleted + 1
		if st.Session.IsFinished() {
			round = st.Session.NumRounds
		}
		battleInfo = fmt.Sprintf(" | Round %d of %d (%s)", round, st.Session.NumRounds, st.Session.Status)
	}
	if st.Loading {
		battleInfo += " | Working…"
	}

	errorInfo := ""
	if lastError != "" && st.Err != nil {
		errorInfo = " | Last error: " + lastError
	}

	a.header.SetText(fmt.Sprintf("Screen: %s%s%s", screen.GetTitle(), battleInfo, errorInfo))
}

// ErrorText is the message shown to the user for err
func ErrorText(err error) string {
	if errors.Is(err, arena.ErrNoFlashcards) {
		return "No flashcards available"
	}
	return api.Message(err)
}

// showErrorDialog displays an error message in a modal dialog. A non-nil
// retry adds a Retry button.
func (a *App) showErrorDialog(title, message string, retry func()) {
	now := time.Now()
	a.state.mu.Lock()
	a.state.lastError = message
	a.state.lastErrorTime = &now
	a.state.mu.Unlock()

	buttons := []string{"OK"}
	if retry != nil {
		buttons = []string{"Retry", "OK"}
	}
	a.retry = retry

	modal := tview.NewModal().
		SetText(message).
		AddButtons(buttons).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.dismissError(buttonLabel == "Retry")
		})

	modal.SetTitle(title).
		SetBorder(true).
		SetBackgroundColor(tcell.ColorDarkRed)

	a.pages.AddPage(errorDialogPage, modal, true, true)
}

// dismissError closes the error dialog, optionally retrying the failed operation
func (a *App) dismissError(retry bool) {
	run := a.retry
	a.retry = nil
	if a.pages.HasPage(errorDialogPage) {
		a.pages.RemovePage(errorDialogPage)
	}
	if retry && run != nil {
		run()
	}
}

// updateFooter updates the footer with current key bindings
func (a *App) updateFooter() {
	helpText := ""
	for i, binding := range globalKeyBindings {
		if i > 0 {
			helpText += " | "
		}
		helpText += fmt.Sprintf("%s: %s", keyName(binding), binding.Description)
	}

	a.footer.SetText(helpText)
}

func keyName(binding KeyBinding) string {
	if binding.Key != tcell.KeyRune {
		return tcell.KeyNames[binding.Key]
	}
	return string(binding.Rune)
}

// IsRunning returns whether the application is currently running
func (a *App) IsRunning() bool {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.isRunning
}

// GetCurrentScreen returns the current screen type
func (a *App) GetCurrentScreen() ScreenType {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.currentScreen
}

func (a *App) hasEntered() bool {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.entered
}
