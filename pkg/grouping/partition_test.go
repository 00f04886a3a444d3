package grouping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimipsen/grouper/pkg/models"
)

func TestCalculateTargetGroupSizes(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		size    int
		partial bool
		want    []int
	}{
		{"partial allowed keeps remainder last", 7, 3, true, []int{3, 3, 1}},
		{"remainder spread over leading groups", 7, 3, false, []int{4, 3}},
		{"even split ignores partial flag", 6, 3, false, []int{3, 3}},
		{"population smaller than group size", 2, 3, false, []int{2}},
		{"remainder larger than group count", 7, 5, false, []int{7}},
		{"remainder dealt round-robin", 11, 4, false, []int{6, 5}},
		{"empty population", 0, 3, true, []int{}},
		{"size one", 3, 1, false, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateTargetGroupSizes(tt.total, tt.size, tt.partial)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			sum := 0
			for _, s := range got {
				sum += s
			}
			require.Equal(t, tt.total, sum)
		})
	}

	t.Run("rejects group size below one", func(t *testing.T) {
		_, err := CalculateTargetGroupSizes(5, 0, true)
		require.ErrorIs(t, err, ErrInvalidConfiguration)

		var gerr *Error
		require.True(t, errors.As(err, &gerr))
		require.Equal(t, KeyGroupSizeMin, gerr.Key)
	})
}

func TestPartition(t *testing.T) {
	t.Run("every person lands in exactly one group", func(t *testing.T) {
		people := makePeople(23, models.GenderUnspecified, "p")
		for _, partial := range []bool{true, false} {
			groups, err := Partition(people, 4, partial, NewRand(1))
			require.NoError(t, err)
			requireComplete(t, people, groups)
		}
	})

	t.Run("sizes follow the size policy", func(t *testing.T) {
		people := makePeople(7, models.GenderUnspecified, "p")

		groups, err := Partition(people, 3, false, NewRand(2))
		require.NoError(t, err)
		require.Equal(t, []int{4, 3}, groupSizes(groups))

		groups, err = Partition(people, 3, true, NewRand(2))
		require.NoError(t, err)
		require.Equal(t, []int{3, 3, 1}, groupSizes(groups))
	})

	t.Run("names groups sequentially with fresh ids", func(t *testing.T) {
		groups, err := Partition(makePeople(6, "", "p"), 2, true, NewRand(3))
		require.NoError(t, err)
		require.Equal(t, "Group 1", groups[0].Name)
		require.Equal(t, "Group 3", groups[2].Name)
		require.NotEqual(t, groups[0].ID, groups[1].ID)
		require.NotEmpty(t, groups[0].ID)
	})

	t.Run("empty population yields no groups", func(t *testing.T) {
		groups, err := Partition(nil, 3, true, NewRand(4))
		require.NoError(t, err)
		require.Empty(t, groups)
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		people := makePeople(10, "", "p")
		before := personIDs(people)
		_, err := Partition(people, 3, true, NewRand(5))
		require.NoError(t, err)
		require.Equal(t, before, personIDs(people))
	})

	t.Run("same seed gives the same partition", func(t *testing.T) {
		people := makePeople(12, "", "p")
		a, err := Partition(people, 4, true, NewRand(9))
		require.NoError(t, err)
		b, err := Partition(people, 4, true, NewRand(9))
		require.NoError(t, err)
		for i := range a {
			require.Equal(t, a[i].MemberIDs, b[i].MemberIDs)
		}
	})
}

func TestShuffle(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	Shuffle(items, NewRand(42))
	require.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, items)

	single := []int{1}
	Shuffle(single, NewRand(42))
	require.Equal(t, []int{1}, single)
}
