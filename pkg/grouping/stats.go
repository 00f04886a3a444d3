package grouping

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/kimipsen/grouper/pkg/models"
)

// suggestedSizes are the group sizes SuggestGroupSizes considers.
var suggestedSizes = []int{2, 3, 4, 5, 6}

// GroupStatistics summarizes the sizes of groups.
func GroupStatistics(groups []models.Group) models.GroupStatistics {
	if len(groups) == 0 {
		return models.GroupStatistics{}
	}

	sizes := make(stats.Float64Data, len(groups))
	total := 0
	for i, g := range groups {
		sizes[i] = float64(len(g.MemberIDs))
		total += len(g.MemberIDs)
	}

	// stats only errors on empty input, which is excluded above
	mean, _ := sizes.Mean()
	lo, _ := sizes.Min()
	hi, _ := sizes.Max()
	sd, _ := sizes.StandardDeviation()

	return models.GroupStatistics{
		TotalGroups:      len(groups),
		TotalPeople:      total,
		AverageGroupSize: mean,
		MinGroupSize:     int(lo),
		MaxGroupSize:     int(hi),
		SizeStdDev:       sd,
	}
}

// WeightSpreads reports, per weight id, how the group totals are spread.
// Sentinel ids are expanded first.
func WeightSpreads(groups []models.Group, people []models.Person, weightIDs []string) []models.WeightSpread {
	if len(groups) == 0 {
		return nil
	}
	byID := make(map[string]models.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}

	ids := ExpandWeightIDs(weightIDs)
	spreads := make([]models.WeightSpread, 0, len(ids))
	for _, id := range ids {
		totals := make(stats.Float64Data, len(groups))
		for i, g := range groups {
			for _, m := range g.MemberIDs {
				totals[i] += AttributeValue(byID[m], id)
			}
		}
		mean, _ := totals.Mean()
		sd, _ := totals.StandardDeviation()
		lo, _ := totals.Min()
		hi, _ := totals.Max()
		spreads = append(spreads, models.WeightSpread{
			WeightID: id,
			Totals:   totals,
			Mean:     mean,
			StdDev:   sd,
			Range:    hi - lo,
		})
	}
	return spreads
}

// SuggestGroupSizes proposes group sizes from 2 to 6 that fit peopleCount.
func SuggestGroupSizes(peopleCount int) []models.GroupSizeSuggestion {
	suggestions := []models.GroupSizeSuggestion{}
	for _, size := range suggestedSizes {
		if size > peopleCount {
			break
		}
		groups := (peopleCount + size - 1) / size
		remainder := peopleCount % size

		reason := fmt.Sprintf("%d %s", groups, plural(groups, "group", "groups"))
		if remainder != 0 {
			reason += fmt.Sprintf(" (one group with %d %s)", remainder, plural(remainder, "person", "people"))
		}

		suggestions = append(suggestions, models.GroupSizeSuggestion{
			GroupSize:      size,
			NumberOfGroups: groups,
			IsEvenSplit:    remainder == 0,
			Reason:         reason,
		})
	}
	return suggestions
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
