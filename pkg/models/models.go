package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Gender is the categorical gender attribute of a person
type Gender string

const (
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
	GenderNonbinary   Gender = "nonbinary"
	GenderUnspecified Gender = "unspecified"
)

// Genders lists every gender category in canonical order
var Genders = []Gender{GenderFemale, GenderMale, GenderNonbinary, GenderUnspecified}

// Valid reports whether g is one of the known categories (empty counts as unspecified)
func (g Gender) Valid() bool {
	return g == "" || slices.Contains(Genders, g)
}

// Person represents someone who can be placed in a group
type Person struct {
	ID        string             `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	Email     string             `json:"email,omitempty" yaml:"email,omitempty"`
	Gender    Gender             `json:"gender,omitempty" yaml:"gender,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	CreatedAt time.Time          `json:"created_at" yaml:"created_at,omitempty"`
}

// GenderOrDefault returns the person's gender, falling back to unspecified
func (p Person) GenderOrDefault() Gender {
	if p.Gender == "" {
		return GenderUnspecified
	}
	return p.Gender
}

var (
	ErrDuplicatePersonID = errors.New("duplicate person id")
	ErrUnknownGender     = errors.New("unknown gender")
)

// CheckPeople rejects a population with an unknown gender or a repeated id.
// Empty ids are skipped since storage assigns them.
func CheckPeople(people []Person) error {
	seen := make(map[string]bool, len(people))
	for i, p := range people {
		if !p.Gender.Valid() {
			return fmt.Errorf("person %d (%q): %w %q", i+1, p.ID, ErrUnknownGender, p.Gender)
		}
		if p.ID == "" {
			continue
		}
		if seen[p.ID] {
			return fmt.Errorf("%w %q", ErrDuplicatePersonID, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Preferences holds who a person wants to be grouped with and who they want to avoid
type Preferences struct {
	WantWith []string `json:"want_with" yaml:"want_with"`
	Avoid    []string `json:"avoid" yaml:"avoid"`
}

// PreferenceMap maps a person ID to that person's preferences.
// Preferences are directional: A wanting B says nothing about B.
type PreferenceMap map[string]Preferences

// Wants reports whether from wants to be grouped with to
func (m PreferenceMap) Wants(from, to string) bool {
	p, ok := m[from]
	return ok && slices.Contains(p.WantWith, to)
}

// Avoids reports whether from wants to avoid to
func (m PreferenceMap) Avoids(from, to string) bool {
	p, ok := m[from]
	return ok && slices.Contains(p.Avoid, to)
}

// PreferenceScoring holds the points applied for co-located preference pairs
type PreferenceScoring struct {
	WantWith float64 `json:"want_with" yaml:"want_with"`
	Avoid    float64 `json:"avoid" yaml:"avoid"`
}

// DefaultPreferenceScoring is used when a caller supplies no scoring
var DefaultPreferenceScoring = PreferenceScoring{WantWith: 2, Avoid: -2}

// Strategy selects the grouping algorithm
type Strategy string

const (
	StrategyRandom          Strategy = "RANDOM"
	StrategyPreferenceBased Strategy = "PREFERENCE_BASED"
	StrategyWeighted        Strategy = "WEIGHTED"
)

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRandom, StrategyPreferenceBased, StrategyWeighted:
		return true
	}
	return false
}

// GenderMode controls the gender composition of groups
type GenderMode string

const (
	GenderModeMixed  GenderMode = "mixed"
	GenderModeSingle GenderMode = "single"
	GenderModeIgnore GenderMode = "ignore"
)

// Valid reports whether m is a known mode (empty means "use the default")
func (m GenderMode) Valid() bool {
	switch m {
	case "", GenderModeMixed, GenderModeSingle, GenderModeIgnore:
		return true
	}
	return false
}

// GroupingSettings configures one grouping run
type GroupingSettings struct {
	Strategy           Strategy   `json:"strategy" yaml:"strategy"`
	GroupSize          int        `json:"group_size" yaml:"group_size"`
	AllowPartialGroups *bool      `json:"allow_partial_groups,omitempty" yaml:"allow_partial_groups,omitempty"`
	GenderMode         GenderMode `json:"gender_mode,omitempty" yaml:"gender_mode,omitempty"`
	WeightIDs          []string   `json:"weight_ids,omitempty" yaml:"weight_ids,omitempty"`
}

// PartialGroupsAllowed returns AllowPartialGroups, defaulting to true
func (s GroupingSettings) PartialGroupsAllowed() bool {
	return s.AllowPartialGroups == nil || *s.AllowPartialGroups
}

// Group is one disjoint subset of the population produced by a grouping run
type Group struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	MemberIDs         []string `json:"member_ids" yaml:"member_ids"`
	SatisfactionScore *float64 `json:"satisfaction_score,omitempty" yaml:"satisfaction_score,omitempty"`
}

// GroupingResult is the output of one grouping run
type GroupingResult struct {
	ID                  string           `json:"id" yaml:"id"`
	Groups              []Group          `json:"groups" yaml:"groups"`
	Strategy            Strategy         `json:"strategy" yaml:"strategy"`
	Settings            GroupingSettings `json:"settings" yaml:"settings"`
	Timestamp           time.Time        `json:"timestamp" yaml:"timestamp"`
	OverallSatisfaction *float64         `json:"overall_satisfaction,omitempty" yaml:"overall_satisfaction,omitempty"`
}

// CustomWeightDefinition names a numeric attribute that people in a session can carry
type CustomWeightDefinition struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Session is a named population together with its preferences and grouping history
type Session struct {
	ID                string                   `json:"id" yaml:"id"`
	Name              string                   `json:"name" yaml:"name"`
	Description       string                   `json:"description,omitempty" yaml:"description,omitempty"`
	People            []Person                 `json:"people" yaml:"people"`
	Preferences       PreferenceMap            `json:"preferences" yaml:"preferences"`
	PreferenceScoring *PreferenceScoring       `json:"preference_scoring,omitempty" yaml:"preference_scoring,omitempty"`
	CustomWeights     []CustomWeightDefinition `json:"custom_weights" yaml:"custom_weights"`
	GenderMode        GenderMode               `json:"gender_mode,omitempty" yaml:"gender_mode,omitempty"`
	GroupingHistory   []GroupingResult         `json:"grouping_history" yaml:"grouping_history"`
	CreatedAt         time.Time                `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt         time.Time                `json:"updated_at" yaml:"updated_at,omitempty"`
}

// ValidationMessage is a symbolic message key plus interpolation parameters
type ValidationMessage struct {
	Key    string         `json:"key"`
	Params map[string]any `json:"params,omitempty"`
}

// ValidationResult is the outcome of a pre-flight settings check
type ValidationResult struct {
	IsValid  bool                `json:"is_valid"`
	Errors   []ValidationMessage `json:"errors"`
	Warnings []ValidationMessage `json:"warnings"`
}

// GroupStatistics summarizes group sizes of a result
type GroupStatistics struct {
	TotalGroups      int     `json:"total_groups"`
	TotalPeople      int     `json:"total_people"`
	AverageGroupSize float64 `json:"average_group_size"`
	MinGroupSize     int     `json:"min_group_size"`
	MaxGroupSize     int     `json:"max_group_size"`
	SizeStdDev       float64 `json:"size_std_dev"`
}

// WeightSpread describes how one attribute's group totals are distributed
type WeightSpread struct {
	WeightID string    `json:"weight_id"`
	Totals   []float64 `json:"totals"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
	Range    float64   `json:"range"`
}

// GroupSizeSuggestion proposes a group size for a population
type GroupSizeSuggestion struct {
	GroupSize      int    `json:"group_size"`
	NumberOfGroups int    `json:"number_of_groups"`
	IsEvenSplit    bool   `json:"is_even_split"`
	Reason         string `json:"reason"`
}

// GroupInput is the data structure for the stateless grouping endpoint
type GroupInput struct {
	People      []Person           `json:"people"`
	Settings    GroupingSettings   `json:"settings"`
	Preferences PreferenceMap      `json:"preferences,omitempty"`
	Scoring     *PreferenceScoring `json:"scoring,omitempty"`
	Locale      string             `json:"locale,omitempty"`
}

// GroupResponse wraps a result with derived figures for display
type GroupResponse struct {
	Result                 *GroupingResult `json:"result"`
	Statistics             GroupStatistics `json:"statistics"`
	MaxPossibleScore       *float64        `json:"max_possible_score,omitempty"`
	SatisfactionPercentage *float64        `json:"satisfaction_percentage,omitempty"`
	WeightSpread           []WeightSpread  `json:"weight_spread,omitempty"`
}
