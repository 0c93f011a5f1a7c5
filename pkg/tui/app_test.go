package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/flasharena/pkg/api"
	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/mockapi"
)

type mockScreen struct {
	title       string
	primitive   *testPrimitive
	onEnterFunc func(app any) error
	onExitFunc  func(app any) error
}

type testPrimitive struct {
	// Simple test primitive that implements tview.Primitive
}

func (tp *testPrimitive) Draw(screen tcell.Screen)        {}
func (tp *testPrimitive) GetRect() (int, int, int, int)   { return 0, 0, 0, 0 }
func (tp *testPrimitive) SetRect(x, y, width, height int) {}
func (tp *testPrimitive) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return nil
}
func (tp *testPrimitive) Focus(delegate func(p tview.Primitive)) {}
func (tp *testPrimitive) Blur()                                  {}
func (tp *testPrimitive) HasFocus() bool                         { return false }
func (tp *testPrimitive) PasteHandler() func(pastedText string, setFocus func(p tview.Primitive)) {
	return nil
}
func (tp *testPrimitive) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return nil
}

func newMockScreen(title string) *mockScreen {
	return &mockScreen{
		title:     title,
		primitive: &testPrimitive{},
	}
}

func (ms *mockScreen) GetPrimitive() tview.Primitive {
	return ms.primitive
}

func (ms *mockScreen) OnEnter(app any) error {
	if ms.onEnterFunc != nil {
		return ms.onEnterFunc(app)
	}
	return nil
}

func (ms *mockScreen) OnExit(app any) error {
	if ms.onExitFunc != nil {
		return ms.onExitFunc(app)
	}
	return nil
}

func (ms *mockScreen) GetTitle() string {
	return ms.title
}

// testApp is an App whose background work and timers run inline
type testApp struct {
	*App
	backend *mockapi.Server
	timers  []func()
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	backend := mockapi.NewServer()
	require.NoError(t, mockapi.Seed(backend.Store()))
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	config := data.DefaultConfig()
	config.API.BaseURL = srv.URL + "/api"
	config.API.Timeout = 5 * time.Second

	app, err := NewApp(config, api.New(config.API, nil), nil)
	require.NoError(t, err)

	ta := &testApp{App: app, backend: backend}
	app.spawn = func(fn func()) { fn() }
	app.queue = func(fn func()) { fn() }
	app.after = func(_ time.Duration, fn func()) func() {
		ta.timers = append(ta.timers, fn)
		return func() {}
	}
	return ta
}

// setup picks the first pack and the first two students of the seeded roster
func (ta *testApp) setup(rounds int) arena.Setup {
	students := ta.backend.Store().ListStudents()
	packs := ta.backend.Store().ListPacks()
	return arena.Setup{
		PackID:    packs[0].ID,
		PlayerIDs: []string{students[0].ID, students[1].ID},
		Rounds:    rounds,
	}
}

func (ta *testApp) start(t *testing.T, rounds int) {
	t.Helper()
	setup := ta.setup(rounds)
	ta.Dispatch("Could not start the battle", func(ctx context.Context) error {
		return ta.Flow().Start(ctx, setup)
	})
	require.False(t, ta.pages.HasPage(errorDialogPage))
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func TestNewApp(t *testing.T) {
	_, err := NewApp(data.DefaultConfig(), nil, nil)
	assert.Error(t, err)

	ta := newTestApp(t)
	assert.NotNil(t, ta.GetTViewApp())
	assert.False(t, ta.IsRunning())
	assert.Equal(t, ScreenSetup, ta.GetCurrentScreen())
	assert.Equal(t, arena.StepSetup, ta.Flow().Step())
	assert.NotNil(t, ta.Roster())
	assert.Equal(t, 5*time.Second, ta.Config().API.Timeout)

	for _, st := range []ScreenType{ScreenSetup, ScreenVersus, ScreenBattle, ScreenRoundResult, ScreenFinalResult, ScreenLeaderboard, ScreenHelp} {
		assert.Contains(t, ta.screens, st, st.String())
		assert.True(t, ta.pages.HasPage(st.String()), st.String())
	}
}

func TestScreenTypeString(t *testing.T) {
	tests := []struct {
		screen   ScreenType
		expected string
	}{
		{ScreenSetup, "setup"},
		{ScreenVersus, "versus"},
		{ScreenBattle, "battle"},
		{ScreenRoundResult, "round-result"},
		{ScreenFinalResult, "final-result"},
		{ScreenLeaderboard, "leaderboard"},
		{ScreenHelp, "help"},
		{ScreenType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.screen.String())
		})
	}
}

func TestAppScreenRegistration(t *testing.T) {
	ta := newTestApp(t)

	assert.Error(t, ta.RegisterScreen(ScreenLeaderboard, nil))

	replacement := newMockScreen("Replacement")
	require.NoError(t, ta.RegisterScreen(ScreenLeaderboard, replacement))
	assert.Same(t, replacement, ta.screens[ScreenLeaderboard])
	assert.True(t, ta.pages.HasPage(ScreenLeaderboard.String()))

	assert.Error(t, ta.NavigateTo(ScreenType(42)))
}

func TestAppNavigation(t *testing.T) {
	ta := newTestApp(t)

	var entered, exited []string
	for _, st := range []ScreenType{ScreenSetup, ScreenLeaderboard} {
		ms := newMockScreen(st.String())
		ms.onEnterFunc = func(app any) error {
			assert.Same(t, ta.App, app)
			entered = append(entered, ms.title)
			return nil
		}
		ms.onExitFunc = func(any) error {
			exited = append(exited, ms.title)
			return nil
		}
		require.NoError(t, ta.RegisterScreen(st, ms))
	}

	require.NoError(t, ta.NavigateTo(ScreenSetup))
	assert.Empty(t, exited, "nothing to leave on the first navigation")

	require.NoError(t, ta.NavigateTo(ScreenLeaderboard))
	assert.Equal(t, ScreenLeaderboard, ta.GetCurrentScreen())

	require.NoError(t, ta.GoBack())
	assert.Equal(t, ScreenSetup, ta.GetCurrentScreen())

	assert.Equal(t, []string{"setup", "leaderboard", "setup"}, entered)
	assert.Equal(t, []string{"setup", "leaderboard"}, exited)
}

func TestAppNavigationErrorKeepsScreen(t *testing.T) {
	ta := newTestApp(t)
	broken := newMockScreen("Broken")
	broken.onEnterFunc = func(any) error { return assert.AnError }
	require.NoError(t, ta.RegisterScreen(ScreenLeaderboard, broken))

	original := ta.GetCurrentScreen()
	err := ta.NavigateTo(ScreenLeaderboard)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, original, ta.GetCurrentScreen())
}

func TestAppSyncFollowsFlow(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.NavigateTo(ScreenSetup))

	ta.start(t, 2)
	assert.Equal(t, ScreenVersus, ta.GetCurrentScreen())
	require.Len(t, ta.timers, 1)

	ta.timers[0]()
	assert.Equal(t, arena.StepBattle, ta.Flow().Step())
	assert.Equal(t, ScreenBattle, ta.GetCurrentScreen())

	// Leaving for the leaderboard and coming back lands on the battle again
	assert.Nil(t, ta.handleGlobalInput(key(tcell.KeyCtrlL)))
	assert.Equal(t, ScreenLeaderboard, ta.GetCurrentScreen())
	ta.Sync()
	assert.Equal(t, ScreenBattle, ta.GetCurrentScreen())

	match := ta.Flow().State().Match
	require.NotNil(t, match)
	ta.Dispatch("Could not record the winner", func(ctx context.Context) error {
		return ta.Flow().SelectWinner(ctx, []string{match.Player1ID})
	})
	assert.Equal(t, ScreenVersus, ta.GetCurrentScreen())

	ta.updateHeader()
	header := ta.header.GetText(true)
	assert.Contains(t, header, "Screen: Versus")
	assert.Contains(t, header, "Round 2 of 2")
}

func TestAppDispatchErrorOffersRetry(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.NavigateTo(ScreenSetup))

	calls := 0
	ta.Dispatch("Could not save", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("Database unavailable")
		}
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.True(t, ta.pages.HasPage(errorDialogPage))
	assert.Equal(t, "Database unavailable", ta.state.lastError)

	ta.dismissError(true)
	assert.Equal(t, 2, calls, "retry runs the same operation")
	assert.False(t, ta.pages.HasPage(errorDialogPage))

	// Dismissing without retry leaves the operation alone
	ta.Dispatch("Could not save", func(context.Context) error {
		calls++
		return errors.New("still down")
	})
	ta.dismissError(false)
	assert.Equal(t, 3, calls)
	assert.False(t, ta.pages.HasPage(errorDialogPage))
}

func TestAppDispatchIgnoresOutdatedResults(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.NavigateTo(ScreenSetup))

	for _, err := range []error{
		arena.ErrStaleResponse,
		arena.ErrConcurrentOperation,
		arena.ErrWinnerNotAllowed,
		context.Canceled,
	} {
		ta.Dispatch("ignored", func(context.Context) error { return err })
		assert.False(t, ta.pages.HasPage(errorDialogPage), err.Error())
	}
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "No flashcards available", ErrorText(arena.ErrNoFlashcards))
	assert.Equal(t, "No flashcards available", ErrorText(fmt.Errorf("start: %w", arena.ErrNoFlashcards)))
	assert.Equal(t, "Service down", ErrorText(errors.New("Service down")))
	assert.Empty(t, ErrorText(nil))

	ta := newTestApp(t)
	require.NoError(t, ta.NavigateTo(ScreenSetup))
	ta.Dispatch("Could not start the battle", func(context.Context) error { return arena.ErrNoFlashcards })
	assert.True(t, ta.pages.HasPage(errorDialogPage))
	assert.Equal(t, "No flashcards available", ta.state.lastError)
}

func TestAppShowsBackendErrors(t *testing.T) {
	ta := newTestApp(t)
	ta.backend.FailNext(http.MethodGet, "/students", http.StatusServiceUnavailable, "Service down")

	require.NoError(t, ta.NavigateTo(ScreenSetup))
	assert.True(t, ta.pages.HasPage(errorDialogPage))
	assert.Equal(t, "Service down", ta.state.lastError)

	ta.dismissError(true)
	assert.False(t, ta.pages.HasPage(errorDialogPage), "the reload succeeds")
}

func TestAppKeyBindings(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.NavigateTo(ScreenSetup))

	// F1 opens help, twice is harmless
	assert.Nil(t, ta.handleGlobalInput(key(tcell.KeyF1)))
	assert.Equal(t, ScreenHelp, ta.GetCurrentScreen())
	assert.Nil(t, ta.handleGlobalInput(key(tcell.KeyF1)))
	assert.Equal(t, ScreenHelp, ta.GetCurrentScreen())

	// Esc on the help screen goes back
	help := ta.screens[ScreenHelp].(*HelpScreen)
	assert.Contains(t, help.Text(), "New battle")
	assert.Nil(t, help.textView.GetInputCapture()(key(tcell.KeyEsc)))
	assert.Equal(t, ScreenSetup, ta.GetCurrentScreen())

	// Ctrl+N abandons a running battle
	ta.start(t, 3)
	assert.Equal(t, ScreenVersus, ta.GetCurrentScreen())
	assert.Nil(t, ta.handleGlobalInput(key(tcell.KeyCtrlN)))
	assert.Equal(t, arena.StepSetup, ta.Flow().Step())
	assert.Equal(t, ScreenSetup, ta.GetCurrentScreen())
	assert.Nil(t, ta.Flow().State().Session)

	// A timer left over from the abandoned battle does nothing
	require.NotEmpty(t, ta.timers)
	ta.timers[len(ta.timers)-1]()
	assert.Equal(t, ScreenSetup, ta.GetCurrentScreen())

	// Other keys pass through
	event := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	assert.Same(t, event, ta.handleGlobalInput(event))
}

func TestAppFooterListsShortcuts(t *testing.T) {
	ta := newTestApp(t)
	footer := ta.footer.GetText(false)
	for _, binding := range globalKeyBindings {
		assert.Contains(t, footer, binding.Description)
	}
	assert.Contains(t, footer, "F1: Help")
}

func TestAppExit(t *testing.T) {
	ta := newTestApp(t)

	ta.state.isRunning = true
	assert.True(t, ta.IsRunning())

	ta.Stop()
	assert.False(t, ta.IsRunning())
	assert.ErrorIs(t, ta.ctx.Err(), context.Canceled, "requests in flight are aborted")

	// Multiple stops should be safe
	ta.Stop()
	assert.False(t, ta.IsRunning())
}

func BenchmarkAppNavigation(b *testing.B) {
	backend := mockapi.NewServer()
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	config := data.DefaultConfig()
	config.API.BaseURL = srv.URL + "/api"
	app, err := NewApp(config, api.New(config.API, nil), nil)
	require.NoError(b, err)

	_ = app.RegisterScreen(ScreenSetup, newMockScreen("Setup"))
	_ = app.RegisterScreen(ScreenLeaderboard, newMockScreen("Leaderboard"))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = app.NavigateTo(ScreenSetup)
		_ = app.NavigateTo(ScreenLeaderboard)
	}
}
