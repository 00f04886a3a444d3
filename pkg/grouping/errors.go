package grouping

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrInvalidConfiguration is returned when settings cannot produce a partition.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPreferencesRequired is returned when a preference-based run has no preference map.
	ErrPreferencesRequired = errors.New("preferences required")

	// ErrNoWeightsSelected is returned when a weighted run has nothing to balance.
	ErrNoWeightsSelected = errors.New("no weights selected")

	// ErrUnknownStrategy is returned for a strategy outside the closed set.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Message keys carried by *Error. Callers localize these.
const (
	KeyGroupSizeMin        = "grouping.errors.groupSizeMin"
	KeyUnknownGenderMode   = "grouping.errors.unknownGenderMode"
	KeyPreferencesRequired = "grouping.errors.preferencesRequired"
	KeyNoWeightsSelected   = "grouping.errors.noWeightsSelected"
	KeyUnknownStrategy     = "grouping.errors.unknownStrategy"
	KeyNoPeople            = "grouping.errors.noPeople"

	KeyGroupSizeLargerThanPeople = "grouping.warnings.groupSizeLargerThanPeople"
	KeyUnevenDistributionOne     = "grouping.warnings.unevenDistributionOne"
	KeyUnevenDistributionMany    = "grouping.warnings.unevenDistributionMany"
	KeyPartialGroupOne           = "grouping.warnings.partialGroupOne"
	KeyPartialGroupMany          = "grouping.warnings.partialGroupMany"
)

// Error is a structured failure: a symbolic message key plus optional
// interpolation parameters, so presentation layers can localize it.
type Error struct {
	Kind   error
	Key    string
	Params map[string]any
}

func newError(kind error, key string, params map[string]any) *Error {
	return &Error{Kind: kind, Key: key, Params: params}
}

func (e *Error) Error() string {
	if len(e.Params) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Key)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Key, e.Params)
}

func (e *Error) Unwrap() error {
	return e.Kind
}
