package arena

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/flasharena/pkg/api"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/mockapi"
)

type fakeCards struct {
	cards []data.Flashcard
	err   error
	calls int
}

func (f *fakeCards) PackFlashcards(_ context.Context, _ string) ([]data.Flashcard, error) {
	f.calls++
	return f.cards, f.err
}

func deck() *fakeCards {
	return &fakeCards{cards: []data.Flashcard{
		{ID: "c1", Question: "Capital of Peru?", Answer: "Lima"},
		{ID: "c2", Question: "Symbol of gold?", Answer: "Au"},
	}}
}

func lastCard(n int) int { return n - 1 }

func TestSetupValidate(t *testing.T) {
	tests := []struct {
		name     string
		setup    Setup
		expected *ValidationError
	}{
		{"valid", Setup{PackID: "p", PlayerIDs: []string{"a", "b"}, Rounds: 3}, nil},
		{"no pack", Setup{PlayerIDs: []string{"a", "b"}, Rounds: 3}, &ValidationError{Pack: MsgSelectPack}},
		{"one player", Setup{PackID: "p", PlayerIDs: []string{"a"}, Rounds: 3}, &ValidationError{Players: MsgSelectPlayers}},
		{"duplicate players", Setup{PackID: "p", PlayerIDs: []string{"a", "a"}, Rounds: 3}, &ValidationError{Players: MsgSelectPlayers}},
		{"zero rounds", Setup{PackID: "p", PlayerIDs: []string{"a", "b"}}, &ValidationError{Rounds: MsgRoundsRange}},
		{"too many rounds", Setup{PackID: "p", PlayerIDs: []string{"a", "b"}, Rounds: 21}, &ValidationError{Rounds: MsgRoundsRange}},
		{"max rounds", Setup{PackID: "p", PlayerIDs: []string{"a", "b"}, Rounds: 20}, nil},
		{"everything", Setup{}, &ValidationError{Pack: MsgSelectPack, Players: MsgSelectPlayers, Rounds: MsgRoundsRange}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.expected, verr)
		})
	}

	err := Setup{}.Validate()
	assert.Equal(t, MsgSelectPack+"; "+MsgSelectPlayers+"; "+MsgRoundsRange, err.Error())
}

func TestFlowStartValidationMakesNoCalls(t *testing.T) {
	fake := newFakeAPI(1)
	cards := deck()
	f := NewFlow(NewManager(fake, nil), cards)

	err := f.Start(context.Background(), Setup{PackID: "p", PlayerIDs: []string{"s1"}, Rounds: 1})
	require.Error(t, err)
	assert.Equal(t, StepSetup, f.Step())
	assert.Empty(t, fake.calls)
	assert.Zero(t, cards.calls)
}

func TestFlowStartFailuresStayInSetup(t *testing.T) {
	setup := Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 1}

	t.Run("empty pack", func(t *testing.T) {
		fake := newFakeAPI(1)
		f := NewFlow(NewManager(fake, nil), &fakeCards{})
		err := f.Start(context.Background(), setup)
		assert.ErrorIs(t, err, ErrNoFlashcards)
		assert.Equal(t, "no flashcards available in the selected pack", err.Error())
		assert.Equal(t, StepSetup, f.Step())
		assert.Empty(t, fake.calls)
	})

	t.Run("backend failure", func(t *testing.T) {
		fake := newFakeAPI(1)
		fake.err = errors.New("One or more students not found")
		f := NewFlow(NewManager(fake, nil), deck())
		err := f.Start(context.Background(), setup)
		assert.EqualError(t, err, "One or more students not found")
		st := f.State()
		assert.Equal(t, StepSetup, st.Step)
		assert.False(t, st.Loading)
		assert.Nil(t, st.Card)
		assert.EqualError(t, st.Err, "One or more students not found")
	})

	t.Run("first match failure drops the session", func(t *testing.T) {
		fake := newFakeAPI(1)
		matches := fake.matches
		fake.matches = nil
		f := NewFlow(NewManager(fake, nil), deck())
		err := f.Start(context.Background(), setup)
		assert.EqualError(t, err, "All rounds completed")
		assert.Equal(t, []string{"create", "next"}, fake.calls)

		st := f.State()
		assert.Equal(t, StepSetup, st.Step)
		assert.Nil(t, st.Session)
		assert.Nil(t, st.Match)
		assert.False(t, st.Loading)
		assert.EqualError(t, st.Err, "All rounds completed")

		fake.matches = matches
		require.NoError(t, f.Start(context.Background(), setup))
		assert.Equal(t, StepVersus, f.Step())
		require.NotNil(t, f.State().Session)
	})
}

func TestFlowSteps(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(NewManager(newFakeAPI(2), nil), deck(), WithCardPicker(lastCard), WithRoundResults(true))

	assert.True(t, f.CanPickWinner())
	assert.ErrorIs(t, f.SelectWinner(ctx, []string{"s1"}), ErrWinnerNotAllowed)
	assert.ErrorIs(t, f.VersusReady(), ErrInvalidState)

	require.NoError(t, f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 2}))
	st := f.State()
	assert.Equal(t, StepVersus, st.Step)
	require.NotNil(t, st.Card)
	assert.Equal(t, "c2", st.Card.ID)
	require.NotNil(t, st.Match)
	assert.Equal(t, "s1", st.Match.Player1ID)
	assert.ErrorIs(t, f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 2}), ErrInvalidState)

	assert.False(t, f.CanPickWinner())
	assert.ErrorIs(t, f.SelectWinner(ctx, []string{"s1"}), ErrWinnerNotAllowed)

	require.NoError(t, f.VersusReady())
	assert.Equal(t, StepBattle, f.Step())
	assert.True(t, f.CanPickWinner())

	require.NoError(t, f.SelectWinner(ctx, []string{"s2"}))
	st = f.State()
	assert.Equal(t, StepRoundResult, st.Step)
	require.NotNil(t, st.LastRound)
	assert.Equal(t, []string{"s2"}, st.LastRound.Match.WinnerIDs)
	assert.Equal(t, 1, st.LastRound.Session.RoundsCompleted)

	require.NoError(t, f.ContinueFromRoundResult())
	require.NoError(t, f.VersusReady())
	require.NoError(t, f.SelectWinner(ctx, []string{"s2"}))

	st = f.State()
	assert.Equal(t, StepFinalResult, st.Step)
	assert.Nil(t, st.Match)
	assert.Nil(t, st.Card)
	require.NotNil(t, st.Results)
	assert.Equal(t, "s2", st.Results.Rankings[0].StudentID)
	assert.ErrorIs(t, f.ContinueFromRoundResult(), ErrInvalidState)

	f.Reset()
	st = f.State()
	assert.Equal(t, StepSetup, st.Step)
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Results)
}

func TestFlowSubmitFailureKeepsBattle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAPI(2)
	f := NewFlow(NewManager(fake, nil), deck())
	require.NoError(t, f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 2}))
	require.NoError(t, f.VersusReady())
	before := f.State()

	fake.err = errors.New("Match is not in progress")
	assert.EqualError(t, f.SelectWinner(ctx, []string{"s1"}), "Match is not in progress")
	after := f.State()
	assert.Equal(t, StepBattle, after.Step)
	assert.Equal(t, before.Match, after.Match)
	assert.Equal(t, before.Card, after.Card)
	assert.True(t, f.CanPickWinner())

	// Re-clicking retries
	fake.err = nil
	require.NoError(t, f.SelectWinner(ctx, []string{"s1"}))
	assert.Equal(t, StepVersus, f.Step())
}

func TestFlowRetriesFollowUpOnly(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAPI(1)
	f := NewFlow(NewManager(fake, nil), deck())
	require.NoError(t, f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 1}))
	require.NoError(t, f.VersusReady())

	// The round is accepted but the results call fails
	submitted := 0
	outcome := fake.outcome
	fake.outcome = func(id string, w []string) data.MatchWinnerResponse {
		submitted++
		resp := outcome(id, w)
		fake.err = errors.New("Request timed out")
		return resp
	}
	require.Error(t, f.SelectWinner(ctx, []string{"s1"}))
	assert.Equal(t, StepBattle, f.Step())

	fake.err = nil
	require.NoError(t, f.SelectWinner(ctx, []string{"s1"}))
	assert.Equal(t, 1, submitted)
	assert.Equal(t, StepFinalResult, f.Step())
}

func TestFlowGatesDoubleSubmit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAPI(2)
	f := NewFlow(NewManager(fake, nil), deck())
	require.NoError(t, f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 2}))
	require.NoError(t, f.VersusReady())

	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{})
	done := make(chan error)
	go func() { done <- f.SelectWinner(ctx, []string{"s1"}) }()
	<-fake.entered

	assert.False(t, f.CanPickWinner())
	assert.True(t, f.State().Loading)
	assert.ErrorIs(t, f.SelectWinner(ctx, []string{"s1"}), ErrConcurrentOperation)

	fake.gate <- struct{}{} // winner
	<-fake.entered
	fake.gate <- struct{}{} // next match
	require.NoError(t, <-done)
	assert.Equal(t, StepVersus, f.Step())
}

func TestFlowResetDuringStart(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAPI(1)
	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{})
	f := NewFlow(NewManager(fake, nil), deck())

	done := make(chan error)
	go func() { done <- f.Start(ctx, Setup{PackID: "p", PlayerIDs: []string{"s1", "s2"}, Rounds: 1}) }()
	<-fake.entered

	f.Reset()
	fake.gate <- struct{}{}
	assert.ErrorIs(t, <-done, ErrStaleResponse)
	assert.Equal(t, StepSetup, f.Step())
	assert.Nil(t, f.State().Session)
}

func TestCanPickWinnerTable(t *testing.T) {
	for _, step := range []Step{StepSetup, StepVersus, StepBattle, StepRoundResult, StepFinalResult} {
		for _, busy := range []bool{false, true} {
			f := NewFlow(NewManager(newFakeAPI(1), nil), deck())
			f.step = step
			f.busy = busy
			assert.Equal(t, step != StepVersus && !busy, f.CanPickWinner(), "step %s busy %v", step, busy)
		}
	}
}

func TestTwoRoundBattleAgainstMockBackend(t *testing.T) {
	ctx := context.Background()
	backend := mockapi.NewServer()
	require.NoError(t, mockapi.Seed(backend.Store()))
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	client := api.New(data.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second}, nil)
	roster, err := client.ListStudents(ctx)
	require.NoError(t, err)
	packs, err := client.ListPacks(ctx)
	require.NoError(t, err)

	f := NewFlow(NewManager(client, nil), client)
	players := []string{roster[0].ID, roster[1].ID}
	require.NoError(t, f.Start(ctx, Setup{PackID: packs[0].ID, PlayerIDs: players, Rounds: 2}))

	for round := 1; round <= 2; round++ {
		require.Equal(t, StepVersus, f.Step(), "round %d", round)
		require.NoError(t, f.VersusReady())
		st := f.State()
		require.NotNil(t, st.Match)
		require.NotNil(t, st.Card)
		assert.Equal(t, packs[0].ID, st.Card.PackID)
		require.NoError(t, f.SelectWinner(ctx, []string{st.Match.Player1ID}))
	}

	st := f.State()
	assert.Equal(t, StepFinalResult, st.Step)
	assert.Nil(t, st.Match)
	require.NotNil(t, st.Session)
	assert.Equal(t, data.SessionCompleted, st.Session.Status)
	require.NotNil(t, st.LastRound)
	assert.Equal(t, 2, st.LastRound.Session.RoundsCompleted)
	require.Len(t, st.Results.Rankings, 2)
	assert.GreaterOrEqual(t, st.Results.Rankings[0].EloRating, st.Results.Rankings[1].EloRating)

	// A finished session rejects further rounds
	err = f.Manager().FetchNextMatch(ctx)
	assert.ErrorIs(t, err, api.ErrBadRequest)
	assert.Equal(t, "Arena session is not in progress", err.Error())

	f.Reset()
	assert.Equal(t, StepSetup, f.Step())
}

func TestStartSurfacesBackendMessage(t *testing.T) {
	ctx := context.Background()
	backend := mockapi.NewServer()
	require.NoError(t, mockapi.Seed(backend.Store()))
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()
	client := api.New(data.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second}, nil)
	packs, err := client.ListPacks(ctx)
	require.NoError(t, err)

	f := NewFlow(NewManager(client, nil), client)
	err = f.Start(ctx, Setup{PackID: packs[0].ID, PlayerIDs: []string{"ghost-1", "ghost-2"}, Rounds: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrBadRequest)
	assert.Equal(t, "One or more students not found", err.Error())

	backend.FailNext(http.MethodGet, "/next-match", http.StatusServiceUnavailable, "")
	roster, err := client.ListStudents(ctx)
	require.NoError(t, err)
	err = f.Start(ctx, Setup{PackID: packs[0].ID, PlayerIDs: []string{roster[0].ID, roster[1].ID}, Rounds: 1})
	assert.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, StepSetup, f.Step())
}
