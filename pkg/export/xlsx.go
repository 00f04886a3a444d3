package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/models"
)

const (
	groupsSheet  = "Groups"
	summarySheet = "Summary"
)

var groupsHeader = []string{"Group", "Member ID", "Name", "Gender", "Group Satisfaction"}

// WriteResultXLSX writes one grouping result as a workbook with a row per
// member on the Groups sheet and run totals on the Summary sheet
func WriteResultXLSX(w io.Writer, result models.GroupingResult, people []models.Person) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", groupsSheet); err != nil {
		return err
	}

	for i, h := range groupsHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(groupsSheet, cell, h); err != nil {
			return err
		}
	}

	byID := make(map[string]models.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}

	rowIdx := 2
	for _, g := range result.Groups {
		for _, id := range g.MemberIDs {
			p := byID[id]
			row := []any{g.Name, id, p.Name, string(p.GenderOrDefault()), ""}
			if g.SatisfactionScore != nil {
				row[4] = *g.SatisfactionScore
			}
			if err := setRow(f, groupsSheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	stats := grouping.GroupStatistics(result.Groups)
	summary := [][]any{
		{"Strategy", string(result.Strategy)},
		{"Timestamp", result.Timestamp.UTC().Format("2006-01-02 15:04:05")},
		{"Groups", stats.TotalGroups},
		{"People", stats.TotalPeople},
		{"Average group size", stats.AverageGroupSize},
		{"Smallest group", stats.MinGroupSize},
		{"Largest group", stats.MaxGroupSize},
	}
	if result.OverallSatisfaction != nil {
		summary = append(summary, []any{"Overall satisfaction", *result.OverallSatisfaction})
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []any) error {
	for c, v := range values {
		cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
