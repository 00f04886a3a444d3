package grouping

import (
	"math"

	"github.com/kimipsen/grouper/pkg/models"
)

// GroupSatisfaction scores one group's membership.
//
// Every unordered pair (A, B) of members can contribute up to four times:
// A wants B, A avoids B, B wants A, B avoids A. Preferences pointing outside
// the group are never scored.
func GroupSatisfaction(memberIDs []string, prefs models.PreferenceMap, scoring models.PreferenceScoring) float64 {
	score := 0.0
	for i := 0; i < len(memberIDs); i++ {
		for j := i + 1; j < len(memberIDs); j++ {
			a, b := memberIDs[i], memberIDs[j]
			if prefs.Wants(a, b) {
				score += scoring.WantWith
			}
			if prefs.Avoids(a, b) {
				score += scoring.Avoid
			}
			if prefs.Wants(b, a) {
				score += scoring.WantWith
			}
			if prefs.Avoids(b, a) {
				score += scoring.Avoid
			}
		}
	}
	return score
}

// TotalSatisfaction sums GroupSatisfaction over groups.
func TotalSatisfaction(groups []models.Group, prefs models.PreferenceMap, scoring models.PreferenceScoring) float64 {
	total := 0.0
	for _, g := range groups {
		total += GroupSatisfaction(g.MemberIDs, prefs, scoring)
	}
	return total
}

// MaxPossibleScore is an upper bound on satisfaction: every pair in every
// group wanting each other.
//
//	ceil(peopleCount/groupSize) * groupSize*(groupSize-1)/2 * wantWith * 2
func MaxPossibleScore(peopleCount, groupSize int, scoring models.PreferenceScoring) float64 {
	if groupSize < 1 || peopleCount <= 0 {
		return 0
	}
	groups := math.Ceil(float64(peopleCount) / float64(groupSize))
	pairsPerGroup := float64(groupSize*(groupSize-1)) / 2
	return groups * pairsPerGroup * scoring.WantWith * 2
}

// SatisfactionPercentage relates overall to MaxPossibleScore. It returns
// false when no positive maximum exists.
func SatisfactionPercentage(overall float64, peopleCount, groupSize int, scoring models.PreferenceScoring) (float64, bool) {
	maxScore := MaxPossibleScore(peopleCount, groupSize, scoring)
	if maxScore <= 0 {
		return 0, false
	}
	return math.Max(0, overall/maxScore*100), true
}

// assignSatisfaction stores each group's own score on the group.
func assignSatisfaction(groups []models.Group, prefs models.PreferenceMap, scoring models.PreferenceScoring) float64 {
	total := 0.0
	for i := range groups {
		score := GroupSatisfaction(groups[i].MemberIDs, prefs, scoring)
		groups[i].SatisfactionScore = &score
		total += score
	}
	return total
}
