package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
)

// ArenaAPI is the part of the backend the manager needs. *api.Client
// satisfies it.
type ArenaAPI interface {
	CreateArena(ctx context.Context, studentIDs []string, numRounds int) (data.ArenaSession, error)
	NextMatch(ctx context.Context, arenaID string) (data.RawMatch, error)
	SetMatchWinner(ctx context.Context, matchID string, winnerIDs []string) (data.MatchWinnerResponse, error)
	ArenaResults(ctx context.Context, arenaID string) (data.ArenaResults, error)
}

// State is a point-in-time copy of the manager state
type State struct {
	Session *data.ArenaSession
	Match   *data.ArenaMatch
	Loading bool
	Err     error
}

// RoundOutcome is the server's answer to a submitted round
type RoundOutcome struct {
	Match   data.ArenaMatch
	Session data.ArenaSession
}

// Finished reports whether the session has no rounds left
func (o RoundOutcome) Finished() bool {
	return o.Session.IsFinished()
}

// ticket identifies the state an operation was dispatched against
type ticket struct {
	op        string
	epoch     uint64
	sessionID string
	matchID   string
	started   time.Time
}

// Manager owns the current arena session and match. It is the only writer
// of that state and allows one backend operation at a time.
type Manager struct {
	api ArenaAPI
	log *zap.Logger

	mu      sync.Mutex
	session *data.ArenaSession
	match   *data.ArenaMatch
	loading bool
	err     error
	epoch   uint64
}

// NewManager creates a manager on top of the given backend
func NewManager(backend ArenaAPI, logger *zap.Logger) *Manager {
	return &Manager{api: backend, log: logging.OrNop(logger).Named("arena")}
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{Loading: m.loading, Err: m.err}
	if m.session != nil {
		s := copySession(*m.session)
		st.Session = &s
	}
	if m.match != nil {
		mt := copyMatch(*m.match)
		st.Match = &mt
	}
	return st
}

// CreateSession opens a new arena session, replacing any previous one
func (m *Manager) CreateSession(ctx context.Context, studentIDs []string, numRounds int) error {
	t, err := m.begin("create session", false, false)
	if err != nil {
		return err
	}
	session, err := m.api.CreateArena(ctx, studentIDs, numRounds)
	return m.finish(t, err, func() {
		m.session = &session
		m.match = nil
		m.log.Info("arena session created",
			zap.String("session_id", session.ID),
			zap.Int("players", len(studentIDs)),
			zap.Int("rounds", numRounds))
	})
}

// FetchNextMatch asks the backend for the next pairing of the session
func (m *Manager) FetchNextMatch(ctx context.Context) error {
	t, err := m.begin("fetch next match", true, false)
	if err != nil {
		return err
	}
	raw, err := m.api.NextMatch(ctx, t.sessionID)
	var match data.ArenaMatch
	if err == nil {
		match, err = Normalize(raw)
	}
	return m.finish(t, err, func() {
		m.match = &match
		m.log.Debug("next match",
			zap.String("match_id", match.ID),
			zap.String("player1", match.Player1ID),
			zap.String("player2", match.Player2ID))
	})
}

// SubmitRoundWinner records the winners of the current match. Session and
// match are replaced with the values the server returns.
func (m *Manager) SubmitRoundWinner(ctx context.Context, winnerIDs []string) (RoundOutcome, error) {
	if len(winnerIDs) == 0 {
		return RoundOutcome{}, fmt.Errorf("%w: at least one winner is required", ErrInvalidState)
	}
	t, err := m.begin("submit round winner", true, true)
	if err != nil {
		return RoundOutcome{}, err
	}
	resp, err := m.api.SetMatchWinner(ctx, t.matchID, winnerIDs)
	var out RoundOutcome
	if err == nil {
		out.Session = resp.ArenaSession
		out.Match, err = NormalizeWithWinners(resp.Match, winnerIDs)
	}
	err = m.finish(t, err, func() {
		session, match := out.Session, out.Match
		m.session = &session
		m.match = &match
		m.log.Info("round recorded",
			zap.String("session_id", session.ID),
			zap.Strings("winners", winnerIDs),
			zap.Int("rounds_completed", session.RoundsCompleted),
			zap.Int("num_rounds", session.NumRounds))
	})
	if err != nil {
		return RoundOutcome{}, err
	}
	return out, nil
}

// FetchFinalResults loads the standings, marks the session completed and
// clears the current match
func (m *Manager) FetchFinalResults(ctx context.Context) (data.ArenaResults, error) {
	t, err := m.begin("fetch final results", true, false)
	if err != nil {
		return data.ArenaResults{}, err
	}
	results, err := m.api.ArenaResults(ctx, t.sessionID)
	err = m.finish(t, err, func() {
		session := copySession(*m.session)
		session.Participants = append([]data.ArenaStudentStats{}, results.Rankings...)
		session.Status = data.SessionCompleted
		m.session = &session
		m.match = nil
		m.log.Info("arena session finished", zap.String("session_id", session.ID), zap.Int("players", len(results.Rankings)))
	})
	if err != nil {
		return data.ArenaResults{}, err
	}
	return results, nil
}

// Reset clears all state. Responses to operations still in flight are
// discarded when they arrive.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.session = nil
	m.match = nil
	m.loading = false
	m.err = nil
}

// Discard drops the session and match of a battle that never got going.
// Unlike Reset the last error stays visible.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.session = nil
	m.match = nil
	m.loading = false
}

// begin marks the manager busy and captures what the operation runs against
func (m *Manager) begin(op string, needSession, needMatch bool) (ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading {
		return ticket{}, fmt.Errorf("%w: cannot %s", ErrConcurrentOperation, op)
	}
	t := ticket{op: op, epoch: m.epoch, started: time.Now()}
	if needSession {
		if m.session == nil {
			return ticket{}, fmt.Errorf("%w: cannot %s without a session", ErrInvalidState, op)
		}
		t.sessionID = m.session.ID
	}
	if needMatch {
		if m.match == nil {
			return ticket{}, fmt.Errorf("%w: cannot %s without a match", ErrInvalidState, op)
		}
		t.matchID = m.match.ID
	}
	m.loading = true
	return t, nil
}

// finish applies a successful result or records the failure. Results for an
// earlier epoch or another session are dropped.
func (m *Manager) finish(t ticket, err error, apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.log.With(zap.String("op", t.op), zap.Duration("latency", time.Since(t.started)))
	if t.epoch != m.epoch || (t.sessionID != "" && (m.session == nil || m.session.ID != t.sessionID)) {
		log.Warn("discarding stale response", zap.String("session_id", t.sessionID), zap.NamedError("response_error", err))
		return fmt.Errorf("%w: %s", ErrStaleResponse, t.op)
	}

	m.loading = false
	if err != nil {
		m.err = err
		if errors.Is(err, ErrDataIntegrity) {
			log.Error("backend returned malformed data", zap.Error(err))
		} else {
			log.Warn("arena operation failed", zap.Error(err))
		}
		return err
	}
	apply()
	m.err = nil
	return nil
}

func copySession(s data.ArenaSession) data.ArenaSession {
	s.Participants = append([]data.ArenaStudentStats(nil), s.Participants...)
	return s
}

func copyMatch(mt data.ArenaMatch) data.ArenaMatch {
	mt.WinnerIDs = append([]string{}, mt.WinnerIDs...)
	mt.Player1EloAfter = copyFloat(mt.Player1EloAfter)
	mt.Player2EloAfter = copyFloat(mt.Player2EloAfter)
	return mt
}
