package arena

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
)

// Step is the screen the battle is on
type Step string

// Battle steps
const (
	StepSetup       Step = "SETUP"
	StepVersus      Step = "VERSUS"
	StepBattle      Step = "BATTLE"
	StepRoundResult Step = "ROUND_RESULT"
	StepFinalResult Step = "FINAL_RESULT"
)

// CardSource provides the flashcards of a pack. *api.Client satisfies it.
type CardSource interface {
	PackFlashcards(ctx context.Context, packID string) ([]data.Flashcard, error)
}

// Setup is what the user picks before a battle
type Setup struct {
	PackID    string
	PlayerIDs []string
	Rounds    int
}

// Validate checks the setup and returns a *ValidationError naming every
// offending field
func (s Setup) Validate() error {
	verr := &ValidationError{}
	if s.PackID == "" {
		verr.Pack = MsgSelectPack
	}
	if distinct(s.PlayerIDs) < 2 {
		verr.Players = MsgSelectPlayers
	}
	if s.Rounds < data.MinRounds || s.Rounds > data.MaxRounds {
		verr.Rounds = MsgRoundsRange
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func distinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// FlowState is what the screens render
type FlowState struct {
	Step      Step
	Card      *data.Flashcard
	Session   *data.ArenaSession
	Match     *data.ArenaMatch
	LastRound *RoundOutcome
	Results   *data.ArenaResults
	Loading   bool
	Err       error
}

// FlowOption customizes a Flow
type FlowOption func(*Flow)

// WithRoundResults inserts a ROUND_RESULT step after every round that does
// not end the session
func WithRoundResults(enabled bool) FlowOption {
	return func(f *Flow) { f.roundResults = enabled }
}

// WithCardPicker replaces the random card choice. pick returns an index in [0, n).
func WithCardPicker(pick func(n int) int) FlowOption {
	return func(f *Flow) { f.pick = pick }
}

// WithFlowLogger sets the logger
func WithFlowLogger(l *zap.Logger) FlowOption {
	return func(f *Flow) { f.log = logging.OrNop(l).Named("flow") }
}

// Flow is the battle step machine:
//
//	SETUP -> VERSUS -> BATTLE -> [ROUND_RESULT ->] VERSUS | FINAL_RESULT
//
// Reset returns to SETUP from anywhere.
type Flow struct {
	mgr   *Manager
	cards CardSource
	log   *zap.Logger

	roundResults bool
	pick         func(n int) int

	mu      sync.Mutex
	step    Step
	gen     uint64
	busy    bool
	deck    []data.Flashcard
	card    *data.Flashcard
	last    *RoundOutcome
	results *data.ArenaResults
	pending *RoundOutcome // submitted round whose follow-up fetch failed
}

// NewFlow creates a flow in the SETUP step
func NewFlow(mgr *Manager, cards CardSource, opts ...FlowOption) *Flow {
	f := &Flow{
		mgr:   mgr,
		cards: cards,
		log:   zap.NewNop(),
		pick:  rand.Intn,
		step:  StepSetup,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Manager returns the session manager the flow drives
func (f *Flow) Manager() *Manager {
	return f.mgr
}

// Step returns the current step
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// State returns a copy of everything the screens need
func (f *Flow) State() FlowState {
	ms := f.mgr.Snapshot()

	f.mu.Lock()
	defer f.mu.Unlock()
	st := FlowState{
		Step:    f.step,
		Session: ms.Session,
		Match:   ms.Match,
		Loading: ms.Loading || f.busy,
		Err:     ms.Err,
	}
	if f.card != nil {
		c := *f.card
		st.Card = &c
	}
	if f.last != nil {
		l := *f.last
		st.LastRound = &l
	}
	if f.results != nil {
		r := *f.results
		st.Results = &r
	}
	return st
}

// CanPickWinner reports whether winner input is accepted
func (f *Flow) CanPickWinner() bool {
	loading := f.mgr.Snapshot().Loading

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canPickLocked(loading)
}

func (f *Flow) canPickLocked(managerLoading bool) bool {
	return f.step != StepVersus && !managerLoading && !f.busy
}

// Start validates the setup, loads the pack, opens a session and fetches the
// first match. On any failure the flow stays in SETUP.
func (f *Flow) Start(ctx context.Context, setup Setup) error {
	if err := setup.Validate(); err != nil {
		return err
	}

	gen, err := f.acquire(func() error {
		if f.step != StepSetup {
			return fmt.Errorf("%w: battle already started", ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return err
	}

	deck, err := f.cards.PackFlashcards(ctx, setup.PackID)
	if err == nil && len(deck) == 0 {
		err = ErrNoFlashcards
	}
	if err == nil {
		err = f.mgr.CreateSession(ctx, setup.PlayerIDs, setup.Rounds)
	}
	if err == nil {
		if err = f.mgr.FetchNextMatch(ctx); err != nil {
			f.mgr.Discard()
		}
	}
	if err != nil {
		f.log.Warn("failed to start battle", zap.String("pack_id", setup.PackID), zap.Error(err))
		f.release(gen, nil)
		return err
	}

	return f.release(gen, func() {
		f.deck = deck
		f.drawLocked()
		f.step = StepVersus
		f.log.Info("battle started",
			zap.String("pack_id", setup.PackID),
			zap.Int("cards", len(deck)),
			zap.Int("players", len(setup.PlayerIDs)),
			zap.Int("rounds", setup.Rounds))
	})
}

// VersusReady ends the versus intro
func (f *Flow) VersusReady() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepVersus {
		return fmt.Errorf("%w: not in %s", ErrInvalidState, StepVersus)
	}
	f.step = StepBattle
	return nil
}

// SelectWinner submits the round and moves to the next round or the final
// standings. If the submission succeeded but loading what follows failed,
// calling it again only retries the follow-up.
func (f *Flow) SelectWinner(ctx context.Context, winnerIDs []string) error {
	loading := f.mgr.Snapshot().Loading
	var pending *RoundOutcome
	gen, err := f.acquire(func() error {
		if f.step != StepBattle || !f.canPickLocked(loading) {
			return ErrWinnerNotAllowed
		}
		pending = f.pending
		return nil
	})
	if err != nil {
		return err
	}

	out := pending
	if out == nil {
		o, err := f.mgr.SubmitRoundWinner(ctx, winnerIDs)
		if err != nil {
			f.release(gen, nil)
			return err
		}
		out = &o
	}

	if out.Finished() {
		results, err := f.mgr.FetchFinalResults(ctx)
		if err != nil {
			f.release(gen, func() { f.pending = out })
			return err
		}
		return f.release(gen, func() {
			f.pending = nil
			f.last = out
			f.results = &results
			f.card = nil
			f.step = StepFinalResult
		})
	}

	if err := f.mgr.FetchNextMatch(ctx); err != nil {
		f.release(gen, func() { f.pending = out })
		return err
	}
	return f.release(gen, func() {
		f.pending = nil
		f.last = out
		f.drawLocked()
		if f.roundResults {
			f.step = StepRoundResult
		} else {
			f.step = StepVersus
		}
	})
}

// ContinueFromRoundResult leaves the round summary for the next versus intro
func (f *Flow) ContinueFromRoundResult() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepRoundResult {
		return fmt.Errorf("%w: not in %s", ErrInvalidState, StepRoundResult)
	}
	f.step = StepVersus
	return nil
}

// Reset discards the battle and returns to SETUP
func (f *Flow) Reset() {
	f.mgr.Reset()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.busy = false
	f.step = StepSetup
	f.deck = nil
	f.card = nil
	f.last = nil
	f.results = nil
	f.pending = nil
}

// acquire runs check under the lock and marks the flow busy
func (f *Flow) acquire(check func() error) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return 0, ErrConcurrentOperation
	}
	if err := check(); err != nil {
		return 0, err
	}
	f.busy = true
	return f.gen, nil
}

// release clears the busy flag and applies fn unless the flow was reset in
// the meantime
func (f *Flow) release(gen uint64, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return ErrStaleResponse
	}
	f.busy = false
	if fn != nil {
		fn()
	}
	return nil
}

func (f *Flow) drawLocked() {
	if len(f.deck) == 0 {
		f.card = nil
		return
	}
	c := f.deck[f.pick(len(f.deck))]
	f.card = &c
}
