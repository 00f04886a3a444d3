package grouping

import "github.com/kimipsen/grouper/pkg/models"

// ValidateSettings is the pre-flight check for a run over peopleCount
// people. Errors block a run; warnings are advisory. Messages carry keys and
// parameters only.
func ValidateSettings(peopleCount int, settings models.GroupingSettings) models.ValidationResult {
	errs := []models.ValidationMessage{}
	warnings := []models.ValidationMessage{}

	if peopleCount == 0 {
		errs = append(errs, models.ValidationMessage{Key: KeyNoPeople})
	}
	if settings.GroupSize < 1 {
		errs = append(errs, models.ValidationMessage{Key: KeyGroupSizeMin})
	}
	if settings.Strategy != "" && !settings.Strategy.Valid() {
		errs = append(errs, models.ValidationMessage{
			Key:    KeyUnknownStrategy,
			Params: map[string]any{"strategy": string(settings.Strategy)},
		})
	}
	if !settings.GenderMode.Valid() {
		errs = append(errs, models.ValidationMessage{
			Key:    KeyUnknownGenderMode,
			Params: map[string]any{"genderMode": string(settings.GenderMode)},
		})
	}

	if settings.GroupSize > peopleCount {
		warnings = append(warnings, models.ValidationMessage{
			Key:    KeyGroupSizeLargerThanPeople,
			Params: map[string]any{"groupSize": settings.GroupSize, "peopleCount": peopleCount},
		})
	}

	if settings.GroupSize >= 1 {
		remainder := peopleCount % settings.GroupSize
		switch {
		case remainder == 0:
		case !settings.PartialGroupsAllowed():
			key := KeyUnevenDistributionMany
			if remainder == 1 {
				key = KeyUnevenDistributionOne
			}
			warnings = append(warnings, models.ValidationMessage{
				Key: key,
				Params: map[string]any{
					"peopleCount": peopleCount,
					"groupSize":   settings.GroupSize,
					"remainder":   remainder,
				},
			})
		default:
			key := KeyPartialGroupMany
			if remainder == 1 {
				key = KeyPartialGroupOne
			}
			warnings = append(warnings, models.ValidationMessage{
				Key:    key,
				Params: map[string]any{"remainder": remainder, "groupSize": settings.GroupSize},
			})
		}
	}

	return models.ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
