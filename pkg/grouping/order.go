package grouping

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kimipsen/grouper/pkg/models"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en-US"

// NormalizeMemberOrder sorts every group's members by display name under the
// locale's collation, ignoring case and accents, with ties broken by raw id.
// The result depends only on membership, never on search order.
func NormalizeMemberOrder(groups []models.Group, people []models.Person, locale string) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	col := collate.New(tag, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)

	names := make(map[string]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}

	for i := range groups {
		slices.SortFunc(groups[i].MemberIDs, func(a, b string) int {
			if byName := col.CompareString(names[a], names[b]); byName != 0 {
				return byName
			}
			return strings.Compare(a, b)
		})
	}
}
