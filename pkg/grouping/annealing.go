package grouping

import (
	"log/slog"
	"math"

	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/models"
)

// Annealing schedule. The iteration cap is the hard bound on latency.
const (
	InitialTemperature = 100.0
	CoolingRate        = 0.95
	MinTemperature     = 0.01
	MaxIterations      = 1000
)

// Annealer searches group assignments for the highest total preference
// satisfaction using simulated annealing.
type Annealer struct {
	rng     Rand
	logger  *slog.Logger
	scoring models.PreferenceScoring

	initialTemperature float64
	coolingRate        float64
	minTemperature     float64
	maxIterations      int
}

// AnnealerOption configures an Annealer.
type AnnealerOption func(*Annealer)

// WithAnnealerLogger sets the logger used for search summaries.
func WithAnnealerLogger(logger *slog.Logger) AnnealerOption {
	return func(a *Annealer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithScoring overrides DefaultPreferenceScoring.
func WithScoring(scoring models.PreferenceScoring) AnnealerOption {
	return func(a *Annealer) {
		a.scoring = scoring
	}
}

// WithMaxIterations lowers or raises the iteration cap.
func WithMaxIterations(n int) AnnealerOption {
	return func(a *Annealer) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// NewAnnealer creates an annealer drawing randomness from rng.
func NewAnnealer(rng Rand, opts ...AnnealerOption) *Annealer {
	a := &Annealer{
		rng:                rng,
		logger:             logging.NewNop(),
		scoring:            models.DefaultPreferenceScoring,
		initialTemperature: InitialTemperature,
		coolingRate:        CoolingRate,
		minTemperature:     MinTemperature,
		maxIterations:      MaxIterations,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// AnnealResult is the best partition found by a search.
type AnnealResult struct {
	Groups              []models.Group
	OverallSatisfaction float64
	InitialSatisfaction float64
	Iterations          int
	Accepted            int
}

// Anneal partitions people randomly, then improves the partition by swapping
// members between groups. The returned groups are the best seen during the
// search, so the result never scores below the random starting point.
func (a *Annealer) Anneal(people []models.Person, prefs models.PreferenceMap, groupSize int, allowPartialGroups bool) (*AnnealResult, error) {
	if prefs == nil {
		return nil, newError(ErrPreferencesRequired, KeyPreferencesRequired, nil)
	}

	current, err := Partition(people, groupSize, allowPartialGroups, a.rng)
	if err != nil {
		return nil, err
	}
	currentScore := TotalSatisfaction(current, prefs, a.scoring)

	best := copyGroups(current)
	bestScore := currentScore
	initialScore := currentScore

	temperature := a.initialTemperature
	iterations, accepted := 0, 0
	for temperature > a.minTemperature && iterations < a.maxIterations {
		neighbor := a.neighbor(current)
		neighborScore := TotalSatisfaction(neighbor, prefs, a.scoring)

		delta := neighborScore - currentScore
		if delta > 0 || a.rng.Float64() < math.Exp(delta/temperature) {
			current, currentScore = neighbor, neighborScore
			accepted++
			if currentScore > bestScore {
				best = copyGroups(current)
				bestScore = currentScore
			}
		}

		temperature *= a.coolingRate
		iterations++
	}

	assignSatisfaction(best, prefs, a.scoring)

	a.logger.Debug("annealing finished",
		"people", len(people),
		"groups", len(best),
		"iterations", iterations,
		"accepted", accepted,
		"initial_score", initialScore,
		"best_score", bestScore,
	)

	return &AnnealResult{
		Groups:              best,
		OverallSatisfaction: bestScore,
		InitialSatisfaction: initialScore,
		Iterations:          iterations,
		Accepted:            accepted,
	}, nil
}

// neighbor copies groups and swaps one random member between two distinct
// random groups. With fewer than two groups the copy is returned unchanged.
func (a *Annealer) neighbor(groups []models.Group) []models.Group {
	next := copyGroups(groups)
	if len(next) < 2 {
		return next
	}

	i := a.rng.IntN(len(next))
	j := a.rng.IntN(len(next))
	for j == i {
		j = a.rng.IntN(len(next))
	}

	gi, gj := next[i].MemberIDs, next[j].MemberIDs
	if len(gi) == 0 || len(gj) == 0 {
		return next
	}

	mi := a.rng.IntN(len(gi))
	mj := a.rng.IntN(len(gj))
	gi[mi], gj[mj] = gj[mj], gi[mi]

	return next
}
