// Package elo provides the Elo rating calculations used to score arena matches.
// It implements the standard logistic Elo update with draws, configurable
// sensitivity and rating bounds, and the fewest-fights pairing rule.
package elo

import (
	"errors"
	"math"
	"sort"
)

// Error types for validation
var (
	ErrInvalidRating    = errors.New("rating value is invalid")
	ErrInvalidKFactor   = errors.New("k-factor must be positive")
	ErrInvalidBounds    = errors.New("min rating must be less than max rating")
	ErrTooFewContenders = errors.New("at least two contenders are required")
)

// Outcome scores from the first player's point of view
const (
	Loss = 0.0
	Draw = 0.5
	Win  = 1.0
)

// Config holds configuration parameters for the Elo engine
type Config struct {
	KFactor   float64 // Rating sensitivity
	MinRating float64 // Minimum allowed rating
	MaxRating float64 // Maximum allowed rating
	Precision int     // Decimal places kept in results, negative keeps all
}

// DefaultConfig returns K=32, ratings in [0, 4000] rounded to two decimals
func DefaultConfig() Config {
	return Config{KFactor: 32, MinRating: 0, MaxRating: 4000, Precision: 2}
}

// Engine applies Elo updates. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates a new Elo rating engine with specified configuration
func NewEngine(config Config) (*Engine, error) {
	if config.KFactor <= 0 || math.IsNaN(config.KFactor) || math.IsInf(config.KFactor, 0) {
		return nil, ErrInvalidKFactor
	}
	if config.MinRating >= config.MaxRating {
		return nil, ErrInvalidBounds
	}
	return &Engine{cfg: config}, nil
}

// KFactor returns the configured sensitivity
func (e *Engine) KFactor() float64 {
	return e.cfg.KFactor
}

// Update is the rating change of one player
type Update struct {
	Old   float64
	New   float64
	Delta float64
}

// ExpectedScore computes the expected score for player A vs player B
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (ratingB-ratingA)/400.0))
}

// Score turns who answered correctly into the first player's score: a sole
// winner scores 1, a sole loser 0, anything else is a draw
func Score(firstWon, secondWon bool) float64 {
	switch {
	case firstWon && !secondWon:
		return Win
	case secondWon && !firstWon:
		return Loss
	}
	return Draw
}

// Rate applies one match. scoreA is Win, Draw or Loss for player A; player B
// receives the mirrored change so the pair's total is conserved before
// clamping.
func (e *Engine) Rate(ratingA, ratingB, scoreA float64) (Update, Update, error) {
	for _, r := range []float64{ratingA, ratingB} {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Update{}, Update{}, ErrInvalidRating
		}
	}
	if scoreA < Loss || scoreA > Win || math.IsNaN(scoreA) {
		return Update{}, Update{}, ErrInvalidRating
	}

	delta := e.cfg.KFactor * (scoreA - ExpectedScore(ratingA, ratingB))
	return e.update(ratingA, ratingA+delta), e.update(ratingB, ratingB-delta), nil
}

func (e *Engine) update(old, raw float64) Update {
	n := e.round(e.clamp(raw))
	return Update{Old: old, New: n, Delta: e.round(n - old)}
}

// clamp ensures a rating stays within configured bounds
func (e *Engine) clamp(rating float64) float64 {
	return math.Min(math.Max(rating, e.cfg.MinRating), e.cfg.MaxRating)
}

func (e *Engine) round(v float64) float64 {
	if e.cfg.Precision < 0 {
		return v
	}
	p := math.Pow(10, float64(e.cfg.Precision))
	return math.Round(v*p) / p
}

// Contender is a pairing candidate
type Contender struct {
	ID     string
	Rating float64
	Fights int
}

// Pair picks the two contenders with the fewest fights. Ties keep the
// order given, so the result is deterministic.
func Pair(contenders []Contender) (Contender, Contender, error) {
	if len(contenders) < 2 {
		return Contender{}, Contender{}, ErrTooFewContenders
	}
	order := make([]int, len(contenders))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return contenders[order[a]].Fights < contenders[order[b]].Fights
	})
	return contenders[order[0]], contenders[order[1]], nil
}
