package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// groupsPerRow keeps wide populations readable in an 80 column terminal
const groupsPerRow = 3

func renderResult(result *models.GroupingResult, session *models.Session) string {
	names := make(map[string]models.Person, len(session.People))
	for _, p := range session.People {
		names[p.ID] = p
	}

	boxes := make([]string, 0, len(result.Groups))
	for _, g := range result.Groups {
		lines := []string{headStyle.Render(g.Name)}
		for _, id := range g.MemberIDs {
			p := names[id]
			line := p.Name
			if p.Gender != "" {
				line += mutedStyle.Render(" (" + string(p.Gender) + ")")
			}
			lines = append(lines, line)
		}
		if g.SatisfactionScore != nil {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("score %g", *g.SatisfactionScore)))
		}
		boxes = append(boxes, boxStyle.Render(strings.Join(lines, "\n")))
	}

	var rows []string
	for start := 0; start < len(boxes); start += groupsPerRow {
		end := min(start+groupsPerRow, len(boxes))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes[start:end]...))
	}

	stats := grouping.GroupStatistics(result.Groups)
	summary := fmt.Sprintf("%d people in %d groups (sizes %d-%d)",
		stats.TotalPeople, stats.TotalGroups, stats.MinGroupSize, stats.MaxGroupSize)
	if result.OverallSatisfaction != nil {
		summary += fmt.Sprintf(", satisfaction %g", *result.OverallSatisfaction)
		scoring := models.DefaultPreferenceScoring
		if session.PreferenceScoring != nil {
			scoring = *session.PreferenceScoring
		}
		if pct, ok := grouping.SatisfactionPercentage(*result.OverallSatisfaction, stats.TotalPeople, result.Settings.GroupSize, scoring); ok {
			summary += fmt.Sprintf(" (%.0f%% of max)", pct)
		}
	}

	title := titleStyle.Render(fmt.Sprintf("%s · %s", displayName(session), result.Strategy))
	sections := append([]string{title}, rows...)
	sections = append(sections, mutedStyle.Render(summary))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func displayName(session *models.Session) string {
	if session.Name == "" {
		return "Groups"
	}
	return session.Name
}

func renderValidation(result models.ValidationResult) string {
	var lines []string
	if result.IsValid {
		lines = append(lines, headStyle.Render("settings are valid"))
	}
	for _, m := range result.Errors {
		lines = append(lines, errorStyle.Render("error: ")+formatMessage(m))
	}
	for _, m := range result.Warnings {
		lines = append(lines, warningStyle.Render("warning: ")+formatMessage(m))
	}
	return strings.Join(lines, "\n")
}

// formatMessage prints a message key with its parameters in a stable order
func formatMessage(m models.ValidationMessage) string {
	if len(m.Params) == 0 {
		return m.Key
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m.Params[k]))
	}
	return m.Key + " " + mutedStyle.Render(strings.Join(parts, " "))
}

func renderSuggestions(n int, suggestions []models.GroupSizeSuggestion) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Group sizes for %d people", n))}
	if len(suggestions) == 0 {
		lines = append(lines, mutedStyle.Render("no suggestions"))
	}
	for _, s := range suggestions {
		marker := " "
		if s.IsEvenSplit {
			marker = headStyle.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("%s size %d: %s", marker, s.GroupSize, s.Reason))
	}
	return strings.Join(lines, "\n")
}
