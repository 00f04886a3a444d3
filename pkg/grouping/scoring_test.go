package grouping

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimipsen/grouper/pkg/models"
)

func TestGroupSatisfaction(t *testing.T) {
	t.Run("scores each direction independently", func(t *testing.T) {
		prefs := models.PreferenceMap{
			"a": {WantWith: []string{"b"}},
			"b": {Avoid: []string{"a"}},
		}
		scoring := models.PreferenceScoring{WantWith: 5, Avoid: -9}

		require.Equal(t, -4.0, GroupSatisfaction([]string{"a", "b"}, prefs, scoring))
	})

	t.Run("mutual want counts twice", func(t *testing.T) {
		prefs := models.PreferenceMap{
			"a": {WantWith: []string{"b"}},
			"b": {WantWith: []string{"a"}},
		}
		require.Equal(t, 4.0, GroupSatisfaction([]string{"b", "a", "c"}, prefs, models.DefaultPreferenceScoring))
	})

	t.Run("want and avoid of the same person both apply", func(t *testing.T) {
		prefs := models.PreferenceMap{
			"a": {WantWith: []string{"b"}, Avoid: []string{"b"}},
		}
		require.Equal(t, 0.0, GroupSatisfaction([]string{"a", "b"}, prefs, models.DefaultPreferenceScoring))
	})

	t.Run("singleton and empty groups score zero", func(t *testing.T) {
		prefs := models.PreferenceMap{"a": {WantWith: []string{"a"}}}
		require.Zero(t, GroupSatisfaction([]string{"a"}, prefs, models.DefaultPreferenceScoring))
		require.Zero(t, GroupSatisfaction(nil, prefs, models.DefaultPreferenceScoring))
	})
}

func TestTotalSatisfaction(t *testing.T) {
	prefs := models.PreferenceMap{
		"a": {WantWith: []string{"b", "c"}},
		"d": {Avoid: []string{"c"}},
	}
	groups := []models.Group{
		{MemberIDs: []string{"a", "b"}},
		{MemberIDs: []string{"c", "d"}},
	}

	// a->c is split across groups and never scored
	require.Equal(t, 0.0, TotalSatisfaction(groups, prefs, models.DefaultPreferenceScoring))
}

func TestMaxPossibleScore(t *testing.T) {
	require.Equal(t, 48.0, MaxPossibleScore(10, 3, models.DefaultPreferenceScoring))
	require.Equal(t, 0.0, MaxPossibleScore(10, 1, models.DefaultPreferenceScoring))
	require.Equal(t, 0.0, MaxPossibleScore(0, 3, models.DefaultPreferenceScoring))
	require.Equal(t, 0.0, MaxPossibleScore(5, 0, models.DefaultPreferenceScoring))

	pct, ok := SatisfactionPercentage(12, 10, 3, models.DefaultPreferenceScoring)
	require.True(t, ok)
	require.InDelta(t, 25.0, pct, 1e-9)

	pct, ok = SatisfactionPercentage(-8, 10, 3, models.DefaultPreferenceScoring)
	require.True(t, ok)
	require.Zero(t, pct)

	_, ok = SatisfactionPercentage(4, 10, 1, models.DefaultPreferenceScoring)
	require.False(t, ok)
}
