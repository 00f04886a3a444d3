package grouping

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kimipsen/grouper/pkg/models"
)

// CalculateTargetGroupSizes returns the size of every group a population of
// total people splits into.
//
// With partial groups allowed (or an even split) the population is chunked
// into runs of groupSize and the last run holds the remainder. Otherwise the
// remainder r is spread over the first r groups, which get groupSize+1
// members, so no group is smaller than groupSize. A population smaller than
// groupSize always forms a single group.
func CalculateTargetGroupSizes(total, groupSize int, allowPartialGroups bool) ([]int, error) {
	if groupSize < 1 {
		return nil, newError(ErrInvalidConfiguration, KeyGroupSizeMin, map[string]any{"groupSize": groupSize})
	}
	if total <= 0 {
		return []int{}, nil
	}

	remainder := total % groupSize
	fullGroups := total / groupSize

	if allowPartialGroups || remainder == 0 || fullGroups == 0 {
		sizes := make([]int, 0, (total+groupSize-1)/groupSize)
		for i := 0; i < total; i += groupSize {
			sizes = append(sizes, min(groupSize, total-i))
		}
		return sizes, nil
	}

	sizes := make([]int, fullGroups)
	for i := range sizes {
		sizes[i] = groupSize
		if i < remainder {
			sizes[i]++
		}
	}
	// more leftovers than groups: keep dealing them out round-robin
	for extra := remainder - fullGroups; extra > 0; extra-- {
		sizes[(remainder-extra)%fullGroups]++
	}
	return sizes, nil
}

// Partition shuffles people and cuts them into groups sized by
// CalculateTargetGroupSizes.
func Partition(people []models.Person, groupSize int, allowPartialGroups bool, rng Rand) ([]models.Group, error) {
	sizes, err := CalculateTargetGroupSizes(len(people), groupSize, allowPartialGroups)
	if err != nil {
		return nil, err
	}

	ids := personIDs(people)
	Shuffle(ids, rng)

	return chunk(ids, sizes), nil
}

// chunk cuts ids into consecutive runs of the given sizes.
func chunk(ids []string, sizes []int) []models.Group {
	groups := make([]models.Group, 0, len(sizes))
	offset := 0
	for i, size := range sizes {
		members := make([]string, size)
		copy(members, ids[offset:offset+size])
		groups = append(groups, newGroup(i, members))
		offset += size
	}
	return groups
}

func newGroup(index int, members []string) models.Group {
	return models.Group{
		ID:        uuid.NewString(),
		Name:      groupName(index),
		MemberIDs: members,
	}
}

func groupName(index int) string {
	return fmt.Sprintf("Group %d", index+1)
}

// renumber rewrites group names so they read Group 1..N in slice order.
func renumber(groups []models.Group) {
	for i := range groups {
		groups[i].Name = groupName(i)
	}
}

func personIDs(people []models.Person) []string {
	ids := make([]string, len(people))
	for i, p := range people {
		ids[i] = p.ID
	}
	return ids
}

func copyGroups(groups []models.Group) []models.Group {
	out := make([]models.Group, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].MemberIDs = append([]string(nil), g.MemberIDs...)
	}
	return out
}
