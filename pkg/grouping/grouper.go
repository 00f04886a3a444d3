package grouping

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/models"
)

// Grouper dispatches a grouping run to the selected strategy and composes it
// with the gender step and member-order normalization.
//
// A Grouper holds a random source and is not safe for concurrent use; create
// one per run or per goroutine.
type Grouper struct {
	rng    Rand
	logger *slog.Logger
	locale string
	now    func() time.Time
}

// Option configures a Grouper.
type Option func(*Grouper)

// WithRand injects the random source, e.g. NewRand(seed) in tests.
func WithRand(rng Rand) Option {
	return func(g *Grouper) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Grouper) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithLocale sets the default collation locale for member ordering.
func WithLocale(locale string) Option {
	return func(g *Grouper) {
		if locale != "" {
			g.locale = locale
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Grouper) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Grouper. Without options it uses process randomness, the
// en-US locale and a discarding logger.
func New(opts ...Option) *Grouper {
	g := &Grouper{
		rng:    DefaultRand(),
		logger: logging.NewNop(),
		locale: DefaultLocale,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Request is the input of one run.
type Request struct {
	People      []models.Person
	Settings    models.GroupingSettings
	Preferences models.PreferenceMap
	// Scoring defaults to models.DefaultPreferenceScoring.
	Scoring *models.PreferenceScoring
	// Locale overrides the Grouper's locale for this run.
	Locale string
}

// CreateGroups runs one grouping. Configuration errors are returned before
// any randomized work starts; the input slices are never modified.
func (g *Grouper) CreateGroups(req Request) (*models.GroupingResult, error) {
	settings := req.Settings
	if err := checkSettings(settings, req.Preferences); err != nil {
		return nil, err
	}

	mode := settings.GenderMode
	if mode == "" {
		mode = models.GenderModeMixed
	}
	scoring := models.DefaultPreferenceScoring
	if req.Scoring != nil {
		scoring = *req.Scoring
	}

	result := &models.GroupingResult{
		ID:        uuid.NewString(),
		Groups:    []models.Group{},
		Strategy:  settings.Strategy,
		Settings:  settings,
		Timestamp: g.now(),
	}
	if len(req.People) == 0 {
		if settings.Strategy == models.StrategyPreferenceBased {
			zero := 0.0
			result.OverallSatisfaction = &zero
		}
		return result, nil
	}

	started := time.Now()
	step := genderStepFor(mode, settings.Strategy, settings, g.rng)

	var (
		groups []models.Group
		err    error
	)
	switch settings.Strategy {
	case models.StrategyRandom:
		groups, err = step.Run(req.People, g.partitionBuilder(settings))

	case models.StrategyPreferenceBased:
		groups, err = step.Run(req.People, g.annealBuilder(settings, req.Preferences, scoring))
		if err == nil {
			// the gender step may have moved members; score what is returned
			overall := assignSatisfaction(groups, req.Preferences, scoring)
			result.OverallSatisfaction = &overall
		}

	case models.StrategyWeighted:
		groups, err = g.weighted(req.People, settings, mode, step)
	}
	if err != nil {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = g.locale
	}
	NormalizeMemberOrder(groups, req.People, locale)
	result.Groups = groups

	g.logger.Info("grouping complete",
		"strategy", settings.Strategy,
		"gender_step", step.Name(),
		"people", len(req.People),
		"groups", len(groups),
		"duration", time.Since(started),
	)
	return result, nil
}

// CreateGroupsForSession runs a grouping over a session's people, falling
// back to the session's gender mode and preference scoring.
func (g *Grouper) CreateGroupsForSession(session *models.Session, settings models.GroupingSettings) (*models.GroupingResult, error) {
	if settings.GenderMode == "" {
		settings.GenderMode = session.GenderMode
	}
	prefs := session.Preferences
	if prefs == nil && settings.Strategy == models.StrategyPreferenceBased {
		prefs = models.PreferenceMap{}
	}
	return g.CreateGroups(Request{
		People:      session.People,
		Settings:    settings,
		Preferences: prefs,
		Scoring:     session.PreferenceScoring,
	})
}

// checkSettings raises every configuration error that can be detected
// without touching the population.
func checkSettings(settings models.GroupingSettings, prefs models.PreferenceMap) error {
	if settings.GroupSize < 1 {
		return newError(ErrInvalidConfiguration, KeyGroupSizeMin, map[string]any{"groupSize": settings.GroupSize})
	}
	if !settings.GenderMode.Valid() {
		return newError(ErrInvalidConfiguration, KeyUnknownGenderMode, map[string]any{"genderMode": string(settings.GenderMode)})
	}

	switch settings.Strategy {
	case models.StrategyRandom:
	case models.StrategyPreferenceBased:
		if prefs == nil {
			return newError(ErrPreferencesRequired, KeyPreferencesRequired, nil)
		}
	case models.StrategyWeighted:
		if len(ExpandWeightIDs(settings.WeightIDs)) == 0 {
			return newError(ErrNoWeightsSelected, KeyNoWeightsSelected, nil)
		}
	default:
		return newError(ErrUnknownStrategy, KeyUnknownStrategy, map[string]any{"strategy": string(settings.Strategy)})
	}
	return nil
}

func (g *Grouper) partitionBuilder(settings models.GroupingSettings) builder {
	return func(people []models.Person) ([]models.Group, error) {
		return Partition(people, settings.GroupSize, settings.PartialGroupsAllowed(), g.rng)
	}
}

func (g *Grouper) annealBuilder(settings models.GroupingSettings, prefs models.PreferenceMap, scoring models.PreferenceScoring) builder {
	annealer := NewAnnealer(g.rng, WithScoring(scoring), WithAnnealerLogger(g.logger))
	return func(people []models.Person) ([]models.Group, error) {
		res, err := annealer.Anneal(people, prefs, settings.GroupSize, settings.PartialGroupsAllowed())
		if err != nil {
			return nil, err
		}
		return res.Groups, nil
	}
}

// weighted builds the gender-shaped base partition and balances it. In
// single mode only same-gender members may trade places, which keeps every
// group homogeneous.
func (g *Grouper) weighted(people []models.Person, settings models.GroupingSettings, mode models.GenderMode, step GenderStep) ([]models.Group, error) {
	opts := []BalancerOption{WithBalancerLogger(g.logger)}
	if mode == models.GenderModeSingle {
		genders := genderIndex(people)
		opts = append(opts, WithSwapFilter(func(a, b string) bool {
			return genders[a] == genders[b]
		}))
	}
	balancer, err := NewWeightBalancer(people, ExpandWeightIDs(settings.WeightIDs), opts...)
	if err != nil {
		return nil, err
	}

	groups, err := step.Run(people, g.partitionBuilder(settings))
	if err != nil {
		return nil, err
	}
	balancer.Balance(groups)
	return groups, nil
}
