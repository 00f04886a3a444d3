package grouping

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimipsen/grouper/pkg/models"
)

func makePeople(n int, gender models.Gender, prefix string) []models.Person {
	people := make([]models.Person, n)
	for i := range people {
		people[i] = models.Person{
			ID:     fmt.Sprintf("%s%02d", prefix, i),
			Name:   fmt.Sprintf("%s person %02d", prefix, i),
			Gender: gender,
		}
	}
	return people
}

func groupSizes(groups []models.Group) []int {
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = len(g.MemberIDs)
	}
	return sizes
}

// requireComplete asserts every person appears in exactly one group.
func requireComplete(t *testing.T, people []models.Person, groups []models.Group) {
	t.Helper()
	var got []string
	for _, g := range groups {
		got = append(got, g.MemberIDs...)
	}
	want := personIDs(people)
	sort.Strings(got)
	sort.Strings(want)
	require.Equal(t, want, got)
}

func gendersIn(group models.Group, people []models.Person) map[models.Gender]int {
	idx := genderIndex(people)
	counts := make(map[models.Gender]int)
	for _, id := range group.MemberIDs {
		counts[idx[id]]++
	}
	return counts
}
