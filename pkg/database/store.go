package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kimipsen/grouper/pkg/models"
)

// ErrNotFound is returned when a session, person or history entry does not
// exist. It wraps gorm.ErrRecordNotFound so callers can test for either.
var ErrNotFound = fmt.Errorf("not found: %w", gorm.ErrRecordNotFound)

// SessionStore persists sessions, their people and their grouping history
type SessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionStore wraps a migrated database
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// SessionUpdate lists the editable session details. Nil fields are left as is.
type SessionUpdate struct {
	Name              *string                         `json:"name"`
	Description       *string                         `json:"description"`
	GenderMode        *models.GenderMode              `json:"gender_mode"`
	PreferenceScoring *models.PreferenceScoring       `json:"preference_scoring"`
	CustomWeights     []models.CustomWeightDefinition `json:"custom_weights"`
}

func (s *SessionStore) withContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func preloaded(db *gorm.DB) *gorm.DB {
	return db.
		Preload("People", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("timestamp asc") })
}

// Create stores a new session, assigning an id when it has none
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	now := s.now()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt, session.UpdatedAt = now, now
	if session.Preferences == nil {
		session.Preferences = models.PreferenceMap{}
	}
	for i := range session.People {
		if session.People[i].ID == "" {
			session.People[i].ID = uuid.NewString()
		}
		if session.People[i].CreatedAt.IsZero() {
			session.People[i].CreatedAt = now
		}
	}

	rec := sessionToRecord(session)
	if err := s.withContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// List returns every session, most recently updated first
func (s *SessionStore) List(ctx context.Context) ([]models.Session, error) {
	var recs []SessionRecord
	if err := preloaded(s.withContext(ctx)).Order("updated_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]models.Session, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, recordToSession(rec))
	}
	return sessions, nil
}

// Get loads one session with its people and history
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var rec SessionRecord
	if err := preloaded(s.withContext(ctx)).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound("session", id, err)
	}
	session := recordToSession(rec)
	return &session, nil
}

// UpdateDetails changes a session's name, description, default gender mode,
// scoring or weight definitions
func (s *SessionStore) UpdateDetails(ctx context.Context, id string, update SessionUpdate) (*models.Session, error) {
	err := s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, id)
		if err != nil {
			return err
		}
		if update.Name != nil {
			rec.Name = *update.Name
		}
		if update.Description != nil {
			rec.Description = *update.Description
		}
		if update.GenderMode != nil {
			rec.GenderMode = string(*update.GenderMode)
		}
		if update.PreferenceScoring != nil {
			scoring := *update.PreferenceScoring
			rec.PreferenceScoring = &scoring
		}
		if update.CustomWeights != nil {
			rec.CustomWeights = update.CustomWeights
		}
		return s.saveSession(tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a session together with its people and history
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadSession(tx, id); err != nil {
			return err
		}
		return deleteSessionRows(tx, id)
	})
}

// AddPerson appends a person to a session. An empty id is replaced by a uuid.
func (s *SessionStore) AddPerson(ctx context.Context, sessionID string, person *models.Person) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		if person.ID == "" {
			person.ID = uuid.NewString()
		}
		if person.CreatedAt.IsZero() {
			person.CreatedAt = s.now()
		}

		var next int
		if err := tx.Model(&PersonRecord{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(position), -1) + 1").
			Scan(&next).Error; err != nil {
			return fmt.Errorf("add person: %w", err)
		}

		pr := personToRecord(sessionID, next, *person)
		if err := tx.Create(&pr).Error; err != nil {
			return fmt.Errorf("add person: %w", err)
		}
		return s.saveSession(tx, rec)
	})
}

// UpdatePerson replaces the stored fields of an existing person
func (s *SessionStore) UpdatePerson(ctx context.Context, sessionID string, person models.Person) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		var pr PersonRecord
		if err := tx.Where("session_id = ? AND id = ?", sessionID, person.ID).First(&pr).Error; err != nil {
			return notFound("person", person.ID, err)
		}
		pr.Name = person.Name
		pr.Email = person.Email
		pr.Gender = string(person.Gender)
		pr.Weights = person.Weights
		if err := tx.Save(&pr).Error; err != nil {
			return fmt.Errorf("update person: %w", err)
		}
		return s.saveSession(tx, rec)
	})
}

// RemovePerson deletes a person and drops every preference that mentions them
func (s *SessionStore) RemovePerson(ctx context.Context, sessionID, personID string) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		res := tx.Where("session_id = ? AND id = ?", sessionID, personID).Delete(&PersonRecord{})
		if res.Error != nil {
			return fmt.Errorf("remove person: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("person", personID, gorm.ErrRecordNotFound)
		}
		rec.Preferences = prunePreferences(rec.Preferences, personID)
		return s.saveSession(tx, rec)
	})
}

// SetPreferences replaces one person's preferences. Self references and
// unknown ids are dropped.
func (s *SessionStore) SetPreferences(ctx context.Context, sessionID, personID string, prefs models.Preferences) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		var ids []string
		if err := tx.Model(&PersonRecord{}).Where("session_id = ?", sessionID).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("set preferences: %w", err)
		}
		known := make(map[string]bool, len(ids))
		for _, id := range ids {
			known[id] = true
		}
		if !known[personID] {
			return notFound("person", personID, gorm.ErrRecordNotFound)
		}

		keep := func(list []string) []string {
			out := []string{}
			for _, id := range list {
				if id != personID && known[id] {
					out = append(out, id)
				}
			}
			return out
		}
		if rec.Preferences == nil {
			rec.Preferences = models.PreferenceMap{}
		}
		rec.Preferences[personID] = models.Preferences{WantWith: keep(prefs.WantWith), Avoid: keep(prefs.Avoid)}
		return s.saveSession(tx, rec)
	})
}

// AppendResult adds a grouping result to a session's history
func (s *SessionStore) AppendResult(ctx context.Context, sessionID string, result *models.GroupingResult) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		if result.ID == "" {
			result.ID = uuid.NewString()
		}
		gr := resultToRecord(sessionID, *result)
		if err := tx.Create(&gr).Error; err != nil {
			return fmt.Errorf("append result: %w", err)
		}
		return s.saveSession(tx, rec)
	})
}

// GetResult loads one history entry of a session
func (s *SessionStore) GetResult(ctx context.Context, sessionID, resultID string) (*models.GroupingResult, error) {
	var gr GroupingRecord
	if err := s.withContext(ctx).Where("session_id = ? AND id = ?", sessionID, resultID).First(&gr).Error; err != nil {
		return nil, notFound("grouping result", resultID, err)
	}
	result := recordToResult(gr)
	return &result, nil
}

// DeleteResult removes one history entry
func (s *SessionStore) DeleteResult(ctx context.Context, sessionID, resultID string) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		res := tx.Where("session_id = ? AND id = ?", sessionID, resultID).Delete(&GroupingRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete result: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("grouping result", resultID, gorm.ErrRecordNotFound)
		}
		return s.saveSession(tx, rec)
	})
}

// ClearHistory removes every history entry of a session
func (s *SessionStore) ClearHistory(ctx context.Context, sessionID string) error {
	return s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&GroupingRecord{}).Error; err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		return s.saveSession(tx, rec)
	})
}

// Import stores complete sessions, replacing any existing session with the
// same id. It returns the number of sessions written.
func (s *SessionStore) Import(ctx context.Context, sessions []models.Session) (int, error) {
	err := s.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range sessions {
			session := &sessions[i]
			if session.ID == "" {
				session.ID = uuid.NewString()
			}
			now := s.now()
			if session.CreatedAt.IsZero() {
				session.CreatedAt = now
			}
			if session.UpdatedAt.IsZero() {
				session.UpdatedAt = now
			}
			if err := deleteSessionRows(tx, session.ID); err != nil {
				return err
			}
			rec := sessionToRecord(session)
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("import session %s: %w", session.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

func (s *SessionStore) saveSession(tx *gorm.DB, rec *SessionRecord) error {
	rec.UpdatedAt = s.now()
	if err := tx.Omit(clause.Associations).Save(rec).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func loadSession(tx *gorm.DB, id string) (*SessionRecord, error) {
	var rec SessionRecord
	if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound("session", id, err)
	}
	return &rec, nil
}

func deleteSessionRows(tx *gorm.DB, id string) error {
	if err := tx.Where("session_id = ?", id).Delete(&PersonRecord{}).Error; err != nil {
		return fmt.Errorf("delete people: %w", err)
	}
	if err := tx.Where("session_id = ?", id).Delete(&GroupingRecord{}).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if err := tx.Where("id = ?", id).Delete(&SessionRecord{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func notFound(what, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %q: %w", what, id, err)
}

func prunePreferences(prefs models.PreferenceMap, personID string) models.PreferenceMap {
	out := make(models.PreferenceMap, len(prefs))
	for id, p := range prefs {
		if id == personID {
			continue
		}
		out[id] = models.Preferences{
			WantWith: without(p.WantWith, personID),
			Avoid:    without(p.Avoid, personID),
		}
	}
	return out
}

func without(ids []string, drop string) []string {
	out := []string{}
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func sessionToRecord(s *models.Session) SessionRecord {
	rec := SessionRecord{
		ID:                s.ID,
		Name:              s.Name,
		Description:       s.Description,
		GenderMode:        string(s.GenderMode),
		Preferences:       s.Preferences,
		PreferenceScoring: s.PreferenceScoring,
		CustomWeights:     s.CustomWeights,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for i, p := range s.People {
		rec.People = append(rec.People, personToRecord(s.ID, i, p))
	}
	for _, r := range s.GroupingHistory {
		rec.History = append(rec.History, resultToRecord(s.ID, r))
	}
	return rec
}

func recordToSession(rec SessionRecord) models.Session {
	s := models.Session{
		ID:                rec.ID,
		Name:              rec.Name,
		Description:       rec.Description,
		GenderMode:        models.GenderMode(rec.GenderMode),
		Preferences:       rec.Preferences,
		PreferenceScoring: rec.PreferenceScoring,
		CustomWeights:     rec.CustomWeights,
		People:            make([]models.Person, 0, len(rec.People)),
		GroupingHistory:   make([]models.GroupingResult, 0, len(rec.History)),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if s.Preferences == nil {
		s.Preferences = models.PreferenceMap{}
	}
	if s.CustomWeights == nil {
		s.CustomWeights = []models.CustomWeightDefinition{}
	}
	for _, pr := range rec.People {
		s.People = append(s.People, models.Person{
			ID:        pr.ID,
			Name:      pr.Name,
			Email:     pr.Email,
			Gender:    models.Gender(pr.Gender),
			Weights:   pr.Weights,
			CreatedAt: pr.CreatedAt,
		})
	}
	for _, gr := range rec.History {
		s.GroupingHistory = append(s.GroupingHistory, recordToResult(gr))
	}
	return s
}

func personToRecord(sessionID string, position int, p models.Person) PersonRecord {
	return PersonRecord{
		SessionID: sessionID,
		ID:        p.ID,
		Position:  position,
		Name:      p.Name,
		Email:     p.Email,
		Gender:    string(p.Gender),
		Weights:   p.Weights,
		CreatedAt: p.CreatedAt,
	}
}

func resultToRecord(sessionID string, r models.GroupingResult) GroupingRecord {
	return GroupingRecord{
		ID:                  r.ID,
		SessionID:           sessionID,
		Strategy:            string(r.Strategy),
		Settings:            r.Settings,
		Groups:              r.Groups,
		OverallSatisfaction: r.OverallSatisfaction,
		Timestamp:           r.Timestamp,
	}
}

func recordToResult(gr GroupingRecord) models.GroupingResult {
	groups := gr.Groups
	if groups == nil {
		groups = []models.Group{}
	}
	return models.GroupingResult{
		ID:                  gr.ID,
		Groups:              groups,
		Strategy:            models.Strategy(gr.Strategy),
		Settings:            gr.Settings,
		Timestamp:           gr.Timestamp,
		OverallSatisfaction: gr.OverallSatisfaction,
	}
}
