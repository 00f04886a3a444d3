// Package export converts sessions and grouping results to and from the
// file formats offered for download and upload: JSON, XLSX and CSV.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kimipsen/grouper/pkg/models"
)

// ErrInvalidImport is returned for import payloads that are not a session
// object or an array of session objects
var ErrInvalidImport = errors.New("invalid import data")

// ImportValidation is the outcome of a pre-flight check of an import payload
type ImportValidation struct {
	IsValid      bool     `json:"is_valid"`
	SessionCount int      `json:"session_count"`
	Errors       []string `json:"errors"`
}

// ExportSession renders one session as indented JSON
func ExportSession(session models.Session) ([]byte, error) {
	return json.MarshalIndent(session, "", "  ")
}

// ExportSessions renders every session as an indented JSON array
func ExportSessions(sessions []models.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []models.Session{}
	}
	return json.MarshalIndent(sessions, "", "  ")
}

// ValidateImportData checks the shape of an import payload without decoding
// it. A single object only needs an id; array entries need an id and a name.
func ValidateImportData(data []byte) ImportValidation {
	if !gjson.ValidBytes(data) {
		return ImportValidation{Errors: []string{"Invalid JSON format"}}
	}

	root := gjson.ParseBytes(data)
	switch {
	case root.IsObject():
		if root.Get("id").String() == "" {
			return ImportValidation{Errors: []string{"Invalid format: expected session object or array of sessions"}}
		}
		return ImportValidation{IsValid: true, SessionCount: 1, Errors: []string{}}

	case root.IsArray():
		items := root.Array()
		invalid := 0
		for _, item := range items {
			if !item.IsObject() || item.Get("id").String() == "" || item.Get("name").String() == "" {
				invalid++
			}
		}
		if invalid > 0 {
			return ImportValidation{
				SessionCount: len(items) - invalid,
				Errors:       []string{fmt.Sprintf("%d invalid session(s) found in the data", invalid)},
			}
		}
		return ImportValidation{IsValid: true, SessionCount: len(items), Errors: []string{}}
	}

	return ImportValidation{Errors: []string{"Invalid format: expected session object or array of sessions"}}
}

// ImportSessions decodes a single session object or an array of sessions.
// Every session is checked strictly before anything is decoded.
func ImportSessions(data []byte) ([]models.Session, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidImport)
	}

	root := gjson.ParseBytes(data)
	var raws []gjson.Result
	switch {
	case root.IsObject() && root.Get("id").Exists():
		raws = []gjson.Result{root}
	case root.IsArray():
		raws = root.Array()
	default:
		return nil, fmt.Errorf("%w: expected session object or array of sessions", ErrInvalidImport)
	}

	sessions := make([]models.Session, 0, len(raws))
	for i, raw := range raws {
		if err := checkSession(raw); err != nil {
			return nil, fmt.Errorf("%w: session %d: %v", ErrInvalidImport, i, err)
		}
		var s models.Session
		if err := json.Unmarshal([]byte(raw.Raw), &s); err != nil {
			return nil, fmt.Errorf("%w: session %d: %v", ErrInvalidImport, i, err)
		}
		if s.Preferences == nil {
			s.Preferences = models.PreferenceMap{}
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func checkSession(raw gjson.Result) error {
	if !raw.IsObject() {
		return errors.New("not an object")
	}
	for _, key := range []string{"id", "name"} {
		v := raw.Get(key)
		if v.Type != gjson.String || v.String() == "" {
			return fmt.Errorf("%s must be a non-empty string", key)
		}
	}
	people := raw.Get("people")
	if !people.IsArray() {
		return errors.New("people must be an array")
	}
	var decoded []models.Person
	if err := json.Unmarshal([]byte(people.Raw), &decoded); err != nil {
		return fmt.Errorf("people: %w", err)
	}
	if err := models.CheckPeople(decoded); err != nil {
		return err
	}
	if p := raw.Get("preferences"); p.Exists() && p.Type != gjson.Null && !p.IsObject() {
		return errors.New("preferences must be an object")
	}
	if h := raw.Get("grouping_history"); h.Exists() && h.Type != gjson.Null && !h.IsArray() {
		return errors.New("grouping_history must be an array")
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]`)

// ExportFilename builds a download name such as
// grouper-class-4b-2024-03-01T12-00-00.json
func ExportFilename(sessionName string, now time.Time) string {
	timestamp := now.UTC().Format("2006-01-02T15-04-05")
	if sessionName == "" {
		return "grouper-sessions-" + timestamp + ".json"
	}
	name := unsafeFilename.ReplaceAllString(strings.ToLower(sessionName), "-")
	return "grouper-" + name + "-" + timestamp + ".json"
}
