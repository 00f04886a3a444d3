package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kimipsen/grouper/pkg/models"
)

func sampleSession() models.Session {
	score := 2.0
	return models.Session{
		ID:   "s1",
		Name: "Class 4B",
		People: []models.Person{
			{ID: "p1", Name: "Ada", Gender: models.GenderFemale},
			{ID: "p2", Name: "Bo", Gender: models.GenderMale},
		},
		Preferences: models.PreferenceMap{"p1": {WantWith: []string{"p2"}, Avoid: []string{}}},
		GroupingHistory: []models.GroupingResult{{
			ID:                  "r1",
			Groups:              []models.Group{{ID: "g1", Name: "Group 1", MemberIDs: []string{"p1", "p2"}, SatisfactionScore: &score}},
			Strategy:            models.StrategyPreferenceBased,
			Settings:            models.GroupingSettings{Strategy: models.StrategyPreferenceBased, GroupSize: 2},
			Timestamp:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			OverallSatisfaction: &score,
		}},
	}
}

func TestExportImportSessions(t *testing.T) {
	t.Run("single session", func(t *testing.T) {
		data, err := ExportSession(sampleSession())
		require.NoError(t, err)
		require.Contains(t, string(data), "\n  \"id\": \"s1\"")

		sessions, err := ImportSessions(data)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		require.Equal(t, "Class 4B", sessions[0].Name)
		require.True(t, sessions[0].Preferences.Wants("p1", "p2"))
		require.Equal(t, 2.0, *sessions[0].GroupingHistory[0].OverallSatisfaction)
	})

	t.Run("array of sessions", func(t *testing.T) {
		second := sampleSession()
		second.ID, second.Name = "s2", "Class 5A"
		data, err := ExportSessions([]models.Session{sampleSession(), second})
		require.NoError(t, err)

		sessions, err := ImportSessions(data)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		require.Equal(t, "s2", sessions[1].ID)
	})

	t.Run("empty export", func(t *testing.T) {
		data, err := ExportSessions(nil)
		require.NoError(t, err)
		require.Equal(t, "[]", string(data))
	})
}

func TestImportSessions_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":           `{"id": `,
		"scalar":              `42`,
		"object without id":   `{"name": "x"}`,
		"numeric id":          `[{"id": 5, "name": "x", "people": []}]`,
		"missing name":        `[{"id": "a", "people": []}]`,
		"people not an array": `{"id": "a", "name": "x", "people": {}}`,
		"preferences list":    `{"id": "a", "name": "x", "people": [], "preferences": []}`,
		"history object":      `{"id": "a", "name": "x", "people": [], "grouping_history": {}}`,
		"repeated person id":  `{"id": "a", "name": "x", "people": [{"id": "p1", "name": "A"}, {"id": "p1", "name": "B"}]}`,
		"unknown gender":      `{"id": "a", "name": "x", "people": [{"id": "p1", "name": "A", "gender": "Male"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportSessions([]byte(payload))
			require.ErrorIs(t, err, ErrInvalidImport)
		})
	}
}

func TestValidateImportData(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		valid   bool
		count   int
		errText string
	}{
		{"single", `{"id": "s1"}`, true, 1, ""},
		{"array", `[{"id": "a", "name": "A"}, {"id": "b", "name": "B"}]`, true, 2, ""},
		{"partly invalid", `[{"id": "a", "name": "A"}, {"id": "b"}, 3]`, false, 1, "2 invalid session(s) found in the data"},
		{"not json", `nope`, false, 0, "Invalid JSON format"},
		{"wrong shape", `"text"`, false, 0, "Invalid format: expected session object or array of sessions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateImportData([]byte(tt.payload))
			require.Equal(t, tt.valid, got.IsValid)
			require.Equal(t, tt.count, got.SessionCount)
			if tt.errText == "" {
				require.Empty(t, got.Errors)
			} else {
				require.Equal(t, []string{tt.errText}, got.Errors)
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 45, 123, time.UTC)
	require.Equal(t, "grouper-class-4b-2024-03-01T12-30-45.json", ExportFilename("Class 4B", now))
	require.Equal(t, "grouper-sessions-2024-03-01T12-30-45.json", ExportFilename("", now))
	require.Equal(t, "grouper-a-b--c-2024-03-01T12-30-45.json", ExportFilename("a/b? c", now))
}

func TestReadPeopleCSV(t *testing.T) {
	input := "id,name,gender,skill,height\n" +
		"p1,Ada,Female,3,1.7\n" +
		",Bo,,,1.8\n"

	people, err := ReadPeopleCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, people, 2)

	require.Equal(t, "p1", people[0].ID)
	require.Equal(t, models.GenderFemale, people[0].Gender)
	require.Equal(t, map[string]float64{"skill": 3, "height": 1.7}, people[0].Weights)

	require.NotEmpty(t, people[1].ID)
	require.Equal(t, models.GenderUnspecified, people[1].GenderOrDefault())
	require.Equal(t, map[string]float64{"height": 1.8}, people[1].Weights)

	t.Run("errors", func(t *testing.T) {
		for name, in := range map[string]string{
			"no name column": "id,gender\np1,male\n",
			"empty name":     "id,name\np1,\n",
			"bad gender":     "name,gender\nAda,robot\n",
			"bad weight":     "name,skill\nAda,high\n",
			"duplicate id":   "id,name\np1,Ada\np1,Bo\n",
		} {
			_, err := ReadPeopleCSV(strings.NewReader(in))
			require.Error(t, err, name)
		}
	})
}

func TestWriteGroupsCSV(t *testing.T) {
	s := sampleSession()
	var buf bytes.Buffer
	require.NoError(t, WriteGroupsCSV(&buf, s.GroupingHistory[0], s.People))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"group_id,group_name,person_id,person_name,gender,satisfaction_score",
		"g1,Group 1,p1,Ada,female,2",
		"g1,Group 1,p2,Bo,male,2",
	}, lines)
}

func TestWriteResultXLSX(t *testing.T) {
	s := sampleSession()
	var buf bytes.Buffer
	require.NoError(t, WriteResultXLSX(&buf, s.GroupingHistory[0], s.People))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(groupsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, groupsHeader, rows[0])
	require.Equal(t, []string{"Group 1", "p1", "Ada", "female", "2"}, rows[1])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Strategy", "PREFERENCE_BASED"}, summary[0])
	require.Equal(t, []string{"People", "2"}, summary[3])
}
