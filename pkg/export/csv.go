package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kimipsen/grouper/pkg/models"
)

// reserved people columns; any other column is read as a numeric weight
var peopleColumns = map[string]bool{"id": true, "name": true, "gender": true, "email": true}

// ReadPeopleCSV parses people from a CSV file with a header row. name is
// required; id, gender and email are optional; every other column is a
// numeric weight whose id is the column header. Empty weight cells are skipped.
func ReadPeopleCSV(r io.Reader) ([]models.Person, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read people header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New("people file needs a name column")
	}

	field := func(record []string, col string) string {
		if i, ok := cols[col]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var people []models.Person
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p := models.Person{
			ID:     field(record, "id"),
			Name:   field(record, "name"),
			Email:  field(record, "email"),
			Gender: models.Gender(strings.ToLower(field(record, "gender"))),
		}
		if p.Name == "" {
			return nil, fmt.Errorf("line %d: name is required", line)
		}
		if !p.Gender.Valid() {
			return nil, fmt.Errorf("line %d: unknown gender %q", line, p.Gender)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("line %d: duplicate id %q", line, p.ID)
		}
		seen[p.ID] = true

		for i, h := range header {
			col := strings.TrimSpace(h)
			if peopleColumns[strings.ToLower(col)] || i >= len(record) || strings.TrimSpace(record[i]) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: weight %q: %w", line, col, err)
			}
			if p.Weights == nil {
				p.Weights = make(map[string]float64)
			}
			p.Weights[col] = v
		}
		people = append(people, p)
	}
	return people, nil
}

// WriteGroupsCSV writes one row per group member
func WriteGroupsCSV(w io.Writer, result models.GroupingResult, people []models.Person) error {
	names := make(map[string]models.Person, len(people))
	for _, p := range people {
		names[p.ID] = p
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"group_id", "group_name", "person_id", "person_name", "gender", "satisfaction_score"}); err != nil {
		return err
	}
	for _, g := range result.Groups {
		score := ""
		if g.SatisfactionScore != nil {
			score = strconv.FormatFloat(*g.SatisfactionScore, 'f', -1, 64)
		}
		for _, id := range g.MemberIDs {
			p := names[id]
			if err := writer.Write([]string{g.ID, g.Name, id, p.Name, string(p.GenderOrDefault()), score}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
