package grouping

import (
	"sort"

	"github.com/kimipsen/grouper/pkg/models"
)

// builder produces a base partition for a (sub)population.
type builder func(people []models.Person) ([]models.Group, error)

// GenderStep runs a base builder under a gender composition policy.
//
// Which step implements "mixed" depends on the base algorithm: a random or
// weighted base can be replaced by a gender-aware construction, while a
// searched (annealed) partition can only be adjusted after the fact.
type GenderStep interface {
	Name() string
	Run(people []models.Person, build builder) ([]models.Group, error)
}

var (
	_ GenderStep = IgnoreGenderStep{}
	_ GenderStep = (*SingleGenderStep)(nil)
	_ GenderStep = (*MixedConstructiveStep)(nil)
	_ GenderStep = MixedDeclusterStep{}
)

// IgnoreGenderStep passes the base partition through unchanged.
type IgnoreGenderStep struct{}

func (IgnoreGenderStep) Name() string { return "ignore" }

func (IgnoreGenderStep) Run(people []models.Person, build builder) ([]models.Group, error) {
	return build(people)
}

// SingleGenderStep runs the base builder independently per gender bucket,
// producing gender-homogeneous groups.
type SingleGenderStep struct{}

func (*SingleGenderStep) Name() string { return "single" }

func (*SingleGenderStep) Run(people []models.Person, build builder) ([]models.Group, error) {
	var groups []models.Group
	for _, bucket := range bucketByGender(people) {
		bucketGroups, err := build(bucket.people)
		if err != nil {
			return nil, err
		}
		groups = append(groups, bucketGroups...)
	}
	renumber(groups)
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// MixedConstructiveStep ignores the base builder and assigns people to
// pre-sized groups so each gender is spread as evenly as possible.
type MixedConstructiveStep struct {
	GroupSize          int
	AllowPartialGroups bool
	Rand               Rand
	// Decluster runs the post-hoc de-clustering pass after construction.
	Decluster bool
}

func (*MixedConstructiveStep) Name() string { return "mixed-constructive" }

type mixedSlot struct {
	members []string
	target  int
	counts  map[models.Gender]int
}

func (s *MixedConstructiveStep) Run(people []models.Person, _ builder) ([]models.Group, error) {
	sizes, err := CalculateTargetGroupSizes(len(people), s.GroupSize, s.AllowPartialGroups)
	if err != nil {
		return nil, err
	}

	slots := make([]*mixedSlot, len(sizes))
	for i, size := range sizes {
		slots[i] = &mixedSlot{
			members: make([]string, 0, size),
			target:  size,
			counts:  make(map[models.Gender]int),
		}
	}

	buckets := bucketByGender(people)
	for _, b := range buckets {
		Shuffle(b.people, s.Rand)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return len(buckets[i].people) > len(buckets[j].people)
	})

	for _, b := range buckets {
		for k := len(b.people) - 1; k >= 0; k-- {
			slot := s.pick(slots, b.gender)
			slot.members = append(slot.members, b.people[k].ID)
			slot.counts[b.gender]++
		}
	}

	groups := make([]models.Group, len(slots))
	for i, slot := range slots {
		groups[i] = newGroup(i, slot.members)
	}

	if s.Decluster {
		decluster(groups, genderIndex(people))
	}
	return groups, nil
}

// pick returns the open slot holding the fewest members of gender, then the
// smallest slot, then a coin flip.
func (s *MixedConstructiveStep) pick(slots []*mixedSlot, gender models.Gender) *mixedSlot {
	var best *mixedSlot
	for _, slot := range slots {
		if len(slot.members) >= slot.target {
			continue
		}
		if best == nil {
			best = slot
			continue
		}
		cg, bg := slot.counts[gender], best.counts[gender]
		switch {
		case cg < bg:
			best = slot
		case cg == bg && len(slot.members) < len(best.members):
			best = slot
		case cg == bg && len(slot.members) == len(best.members) && s.Rand.Float64() < 0.5:
			best = slot
		}
	}
	if best == nil {
		return slots[0]
	}
	return best
}

// MixedDeclusterStep builds the base partition and then runs a single
// de-clustering pass over every pair of groups.
type MixedDeclusterStep struct{}

func (MixedDeclusterStep) Name() string { return "mixed-decluster" }

func (MixedDeclusterStep) Run(people []models.Person, build builder) ([]models.Group, error) {
	groups, err := build(people)
	if err != nil {
		return nil, err
	}
	decluster(groups, genderIndex(people))
	return groups, nil
}

// decluster scans every group pair once. When both groups share a dominant
// gender, the first member of that gender in the first group trades places
// with the first member of another gender in the second group. It is not
// iterated to a fixed point.
func decluster(groups []models.Group, genders map[string]models.Gender) {
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			a, b := groups[i].MemberIDs, groups[j].MemberIDs

			domA, okA := dominantGender(a, genders)
			domB, okB := dominantGender(b, genders)
			if !okA || !okB || domA != domB {
				continue
			}

			ia, ib := -1, -1
			for k, id := range a {
				if genders[id] == domA {
					ia = k
					break
				}
			}
			for k, id := range b {
				if genders[id] != domB {
					ib = k
					break
				}
			}
			if ia >= 0 && ib >= 0 {
				a[ia], b[ib] = b[ib], a[ia]
			}
		}
	}
}

// dominantGender returns the most frequent gender among members. Ties go to
// the gender seen first.
func dominantGender(members []string, genders map[string]models.Gender) (models.Gender, bool) {
	counts := make(map[models.Gender]int)
	var order []models.Gender
	for _, id := range members {
		g := genders[id]
		if counts[g] == 0 {
			order = append(order, g)
		}
		counts[g]++
	}

	var dominant models.Gender
	maxCount := 0
	for _, g := range order {
		if counts[g] > maxCount {
			dominant, maxCount = g, counts[g]
		}
	}
	return dominant, maxCount > 0
}

type genderBucket struct {
	gender models.Gender
	people []models.Person
}

// bucketByGender splits people by gender, buckets ordered by first appearance.
func bucketByGender(people []models.Person) []genderBucket {
	index := make(map[models.Gender]int)
	var buckets []genderBucket
	for _, p := range people {
		g := p.GenderOrDefault()
		i, ok := index[g]
		if !ok {
			i = len(buckets)
			index[g] = i
			buckets = append(buckets, genderBucket{gender: g})
		}
		buckets[i].people = append(buckets[i].people, p)
	}
	return buckets
}

func genderIndex(people []models.Person) map[string]models.Gender {
	out := make(map[string]models.Gender, len(people))
	for _, p := range people {
		out[p.ID] = p.GenderOrDefault()
	}
	return out
}

// genderStepFor selects the step implementing mode after the given base strategy.
func genderStepFor(mode models.GenderMode, base models.Strategy, settings models.GroupingSettings, rng Rand) GenderStep {
	switch mode {
	case models.GenderModeIgnore:
		return IgnoreGenderStep{}
	case models.GenderModeSingle:
		return &SingleGenderStep{}
	}

	if base == models.StrategyPreferenceBased {
		return MixedDeclusterStep{}
	}
	return &MixedConstructiveStep{
		GroupSize:          settings.GroupSize,
		AllowPartialGroups: settings.PartialGroupsAllowed(),
		Rand:               rng,
		Decluster:          base == models.StrategyWeighted,
	}
}
