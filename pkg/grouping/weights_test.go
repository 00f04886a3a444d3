package grouping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/kimipsen/grouper/pkg/models"
)

func weightedPeople(values map[string]float64) []models.Person {
	var people []models.Person
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		v, ok := values[id]
		if !ok {
			continue
		}
		people = append(people, models.Person{ID: id, Name: id, Weights: map[string]float64{"skill": v}})
	}
	return people
}

func TestExpandWeightIDs(t *testing.T) {
	require.Equal(t, []string{"skill", "age"}, ExpandWeightIDs([]string{"skill", "age"}))
	require.Equal(t,
		[]string{"skill", "gender:female", "gender:male", "gender:nonbinary", "gender:unspecified"},
		ExpandWeightIDs([]string{GenderWeightID, "skill", GenderWeightID}),
	)
	require.Empty(t, ExpandWeightIDs(nil))
}

func TestAttributeValue(t *testing.T) {
	p := models.Person{ID: "a", Gender: models.GenderFemale, Weights: map[string]float64{"skill": 3.5}}

	require.Equal(t, 3.5, AttributeValue(p, "skill"))
	require.Equal(t, 0.0, AttributeValue(p, "missing"))
	require.Equal(t, 1.0, AttributeValue(p, "gender:female"))
	require.Equal(t, 0.0, AttributeValue(p, "gender:male"))
	require.Equal(t, 1.0, AttributeValue(models.Person{}, "gender:unspecified"))

	// unknown categories fall through to plain weights
	p.Weights["level:2"] = 4
	require.Equal(t, 4.0, AttributeValue(p, "level:2"))
}

func TestNewWeightBalancer(t *testing.T) {
	_, err := NewWeightBalancer(weightedPeople(map[string]float64{"a": 1}), nil)
	require.ErrorIs(t, err, ErrNoWeightsSelected)
}

func TestWeightBalancer_Balance(t *testing.T) {
	t.Run("reduces imbalance on one attribute", func(t *testing.T) {
		people := weightedPeople(map[string]float64{"a": 10, "b": 9, "c": 8, "d": 1, "e": 2, "f": 3})
		groups := []models.Group{
			{MemberIDs: []string{"a", "b", "c"}},
			{MemberIDs: []string{"d", "e", "f"}},
		}
		b, err := NewWeightBalancer(people, []string{"skill"})
		require.NoError(t, err)

		report := b.Balance(groups)

		require.Equal(t, 21.0, report.ImbalanceBefore)
		require.Less(t, report.ImbalanceAfter, report.ImbalanceBefore)
		require.LessOrEqual(t, report.Iterations, MaxBalanceIterations)
		require.Positive(t, report.Swaps)
		requireComplete(t, people, groups)
		require.Len(t, groups[0].MemberIDs, 3)
		require.Len(t, groups[1].MemberIDs, 3)
	})

	t.Run("never increases imbalance across many groups", func(t *testing.T) {
		values := map[string]float64{"a": 5, "b": 1, "c": 7, "d": 2, "e": 9, "f": 4}
		people := weightedPeople(values)
		groups := []models.Group{
			{MemberIDs: []string{"a", "c"}},
			{MemberIDs: []string{"e", "f"}},
			{MemberIDs: []string{"b", "d"}},
		}
		b, err := NewWeightBalancer(people, []string{"skill"})
		require.NoError(t, err)

		report := b.Balance(groups)
		require.LessOrEqual(t, report.ImbalanceAfter, report.ImbalanceBefore)
	})

	t.Run("every committed swap lowers the pair distance on several attributes", func(t *testing.T) {
		var people []models.Person
		for i := 0; i < 18; i++ {
			people = append(people, models.Person{
				ID:     fmt.Sprintf("p%02d", i),
				Name:   fmt.Sprintf("person %02d", i),
				Gender: models.Genders[i%len(models.Genders)],
				Weights: map[string]float64{
					"skill": float64((i * 7) % 10),
					"age":   float64(20 + (i*13)%17),
				},
			})
		}
		b, err := NewWeightBalancer(people, ExpandWeightIDs([]string{"skill", "age", GenderWeightID}))
		require.NoError(t, err)
		require.Len(t, b.weightIDs, 6)

		for seed := uint64(1); seed <= 5; seed++ {
			groups, err := Partition(people, 4, true, NewRand(seed))
			require.NoError(t, err)

			for pass := 0; pass < MaxBalanceIterations; pass++ {
				committed := false
				for i := 0; i < len(groups); i++ {
					for j := i + 1; j < len(groups); j++ {
						before := floats.Distance(b.totals(groups[i].MemberIDs), b.totals(groups[j].MemberIDs), 1)
						sizeA, sizeC := len(groups[i].MemberIDs), len(groups[j].MemberIDs)
						if !b.balancePair(groups[i].MemberIDs, groups[j].MemberIDs) {
							continue
						}
						committed = true
						after := floats.Distance(b.totals(groups[i].MemberIDs), b.totals(groups[j].MemberIDs), 1)
						require.Less(t, after, before, "seed %d groups %d/%d", seed, i, j)
						require.Len(t, groups[i].MemberIDs, sizeA)
						require.Len(t, groups[j].MemberIDs, sizeC)
					}
				}
				if !committed {
					break
				}
			}
			requireComplete(t, people, groups)
		}
	})

	t.Run("exits after one pass when nothing improves", func(t *testing.T) {
		people := weightedPeople(map[string]float64{"a": 1, "b": 2, "c": 2, "d": 1})
		groups := []models.Group{
			{MemberIDs: []string{"a", "b"}},
			{MemberIDs: []string{"c", "d"}},
		}
		b, err := NewWeightBalancer(people, []string{"skill"})
		require.NoError(t, err)

		report := b.Balance(groups)
		require.Equal(t, 1, report.Iterations)
		require.Zero(t, report.Swaps)
		require.Equal(t, []string{"a", "b"}, groups[0].MemberIDs)
	})

	t.Run("swap filter blocks disallowed trades", func(t *testing.T) {
		people := weightedPeople(map[string]float64{"a": 10, "b": 10, "c": 0, "d": 0})
		groups := []models.Group{
			{MemberIDs: []string{"a", "b"}},
			{MemberIDs: []string{"c", "d"}},
		}
		b, err := NewWeightBalancer(people, []string{"skill"}, WithSwapFilter(func(string, string) bool { return false }))
		require.NoError(t, err)

		report := b.Balance(groups)
		require.Zero(t, report.Swaps)
		require.Equal(t, report.ImbalanceBefore, report.ImbalanceAfter)
	})
}

func TestSwappedDistance(t *testing.T) {
	people := []models.Person{
		{ID: "a", Gender: models.GenderFemale, Weights: map[string]float64{"x": 3, "y": 1}},
		{ID: "b", Gender: models.GenderMale, Weights: map[string]float64{"x": 1, "y": 4}},
		{ID: "c", Gender: models.GenderMale, Weights: map[string]float64{"x": 2}},
		{ID: "d", Gender: models.GenderFemale, Weights: map[string]float64{"y": 2}},
	}
	b, err := NewWeightBalancer(people, ExpandWeightIDs([]string{"x", "y", GenderWeightID}))
	require.NoError(t, err)

	groupA := []string{"a", "b"}
	groupC := []string{"c", "d"}
	diff := make([]float64, len(b.weightIDs))
	floats.SubTo(diff, b.totals(groupA), b.totals(groupC))

	got := swappedDistance(diff, b.vectors["a"], b.vectors["c"])
	want := floats.Distance(b.totals([]string{"c", "b"}), b.totals([]string{"a", "d"}), 1)
	require.InDelta(t, want, got, 1e-12)

	// pure evaluation leaves the groups untouched
	require.Equal(t, []string{"a", "b"}, groupA)
	require.Equal(t, []string{"c", "d"}, groupC)
}
