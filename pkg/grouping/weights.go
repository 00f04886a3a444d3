package grouping

import (
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/models"
)

// GenderWeightID is the sentinel weight id that expands into one indicator
// attribute per gender category.
const GenderWeightID = "__gender__"

// MaxBalanceIterations caps the weight balancer's passes.
const MaxBalanceIterations = 150

// categorical maps a category name to the function reading it from a person.
// A weight id "<category>:<value>" is the one-hot indicator for value.
var categorical = map[string]func(models.Person) string{
	"gender": func(p models.Person) string { return string(p.GenderOrDefault()) },
}

// categoricalSentinels maps a sentinel weight id to its one-hot expansion.
var categoricalSentinels = map[string][]string{
	GenderWeightID: oneHot("gender", models.Genders),
}

func oneHot[T ~string](category string, values []T) []string {
	ids := make([]string, len(values))
	for i, v := range values {
		ids[i] = category + ":" + string(v)
	}
	return ids
}

// ExpandWeightIDs replaces categorical sentinels with their indicator ids.
// Plain ids keep their order; expansions are appended after them.
func ExpandWeightIDs(weightIDs []string) []string {
	expanded := make([]string, 0, len(weightIDs))
	var appended []string
	seen := make(map[string]bool)
	for _, id := range weightIDs {
		if ids, ok := categoricalSentinels[id]; ok {
			if !seen[id] {
				appended = append(appended, ids...)
				seen[id] = true
			}
			continue
		}
		expanded = append(expanded, id)
	}
	return append(expanded, appended...)
}

// AttributeValue reads one balancing attribute of a person. Missing weights
// count as 0.
func AttributeValue(p models.Person, weightID string) float64 {
	if category, value, ok := strings.Cut(weightID, ":"); ok {
		if read, known := categorical[category]; known {
			if read(p) == value {
				return 1
			}
			return 0
		}
	}
	return p.Weights[weightID]
}

// WeightBalancer reduces cross-group imbalance on selected attributes by
// greedy pairwise member swaps.
type WeightBalancer struct {
	weightIDs     []string
	vectors       map[string][]float64
	maxIterations int
	canSwap       func(a, b string) bool
	logger        *slog.Logger
}

// BalancerOption configures a WeightBalancer.
type BalancerOption func(*WeightBalancer)

// WithSwapFilter restricts which member pairs may trade places.
func WithSwapFilter(canSwap func(a, b string) bool) BalancerOption {
	return func(b *WeightBalancer) {
		b.canSwap = canSwap
	}
}

// WithBalancerLogger sets the logger used for balancing summaries.
func WithBalancerLogger(logger *slog.Logger) BalancerOption {
	return func(b *WeightBalancer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewWeightBalancer prepares attribute vectors for people over the already
// expanded weightIDs.
func NewWeightBalancer(people []models.Person, weightIDs []string, opts ...BalancerOption) (*WeightBalancer, error) {
	if len(weightIDs) == 0 {
		return nil, newError(ErrNoWeightsSelected, KeyNoWeightsSelected, nil)
	}

	b := &WeightBalancer{
		weightIDs:     weightIDs,
		vectors:       make(map[string][]float64, len(people)),
		maxIterations: MaxBalanceIterations,
		canSwap:       func(string, string) bool { return true },
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	for _, p := range people {
		v := make([]float64, len(weightIDs))
		for k, id := range weightIDs {
			v[k] = AttributeValue(p, id)
		}
		b.vectors[p.ID] = v
	}
	return b, nil
}

// BalanceReport summarizes one Balance call.
type BalanceReport struct {
	Iterations      int
	Swaps           int
	ImbalanceBefore float64
	ImbalanceAfter  float64
}

// Balance repeatedly scans every pair of groups and commits the single swap
// that most reduces the pair's summed absolute attribute difference. It stops
// after a pass with no improving swap or after MaxBalanceIterations passes.
func (b *WeightBalancer) Balance(groups []models.Group) BalanceReport {
	report := BalanceReport{ImbalanceBefore: b.Imbalance(groups)}

	for report.Iterations < b.maxIterations {
		report.Iterations++
		improved := false
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				if b.balancePair(groups[i].MemberIDs, groups[j].MemberIDs) {
					improved = true
					report.Swaps++
				}
			}
		}
		if !improved {
			break
		}
	}

	report.ImbalanceAfter = b.Imbalance(groups)
	b.logger.Debug("weight balancing finished",
		"groups", len(groups),
		"weights", len(b.weightIDs),
		"iterations", report.Iterations,
		"swaps", report.Swaps,
		"imbalance_before", report.ImbalanceBefore,
		"imbalance_after", report.ImbalanceAfter,
	)
	return report
}

// balancePair finds the best strictly improving swap between a and b and
// commits it. Candidates are evaluated on snapshot totals without touching
// the groups.
func (b *WeightBalancer) balancePair(a, c []string) bool {
	totalA := b.totals(a)
	totalC := b.totals(c)
	before := floats.Distance(totalA, totalC, 1)

	diff := make([]float64, len(b.weightIDs))
	floats.SubTo(diff, totalA, totalC)

	bestA, bestC := -1, -1
	bestDiff := before
	for ia, ma := range a {
		for ic, mc := range c {
			if !b.canSwap(ma, mc) {
				continue
			}
			if after := swappedDistance(diff, b.vectors[ma], b.vectors[mc]); after < bestDiff {
				bestA, bestC, bestDiff = ia, ic, after
			}
		}
	}

	if bestA < 0 {
		return false
	}
	a[bestA], c[bestC] = c[bestC], a[bestA]
	return true
}

// swappedDistance is the L1 distance between two group totals whose
// difference is diff, after the member with vector va leaves the first group
// for the second and vc moves the other way.
func swappedDistance(diff, va, vc []float64) float64 {
	sum := 0.0
	for k := range diff {
		d := diff[k] - 2*(va[k]-vc[k])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func (b *WeightBalancer) totals(members []string) []float64 {
	sum := make([]float64, len(b.weightIDs))
	for _, id := range members {
		if v, ok := b.vectors[id]; ok {
			floats.Add(sum, v)
		}
	}
	return sum
}

// Imbalance is the summed pairwise L1 distance between group totals.
func (b *WeightBalancer) Imbalance(groups []models.Group) float64 {
	totals := make([][]float64, len(groups))
	for i, g := range groups {
		totals[i] = b.totals(g.MemberIDs)
	}
	sum := 0.0
	for i := range totals {
		for j := i + 1; j < len(totals); j++ {
			sum += floats.Distance(totals[i], totals[j], 1)
		}
	}
	return sum
}
