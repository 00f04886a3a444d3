package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kimipsen/grouper/pkg/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store := NewSessionStore(openTestDB(t))
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func seedSession(t *testing.T, store *SessionStore) *models.Session {
	t.Helper()
	session := &models.Session{
		Name: "Class 4B",
		People: []models.Person{
			{ID: "p1", Name: "Ada", Gender: models.GenderFemale, Weights: map[string]float64{"skill": 3}},
			{ID: "p2", Name: "Bo", Gender: models.GenderMale},
			{ID: "p3", Name: "Cy"},
		},
		Preferences: models.PreferenceMap{
			"p1": {WantWith: []string{"p2", "p3"}, Avoid: []string{}},
			"p3": {WantWith: []string{}, Avoid: []string{"p2"}},
		},
		GenderMode: models.GenderModeIgnore,
	}
	require.NoError(t, store.Create(context.Background(), session))
	return session
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created := seedSession(t, store)
	require.NotEmpty(t, created.ID)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Class 4B", got.Name)
	require.Equal(t, models.GenderModeIgnore, got.GenderMode)
	require.Len(t, got.People, 3)
	require.Equal(t, []string{"p1", "p2", "p3"}, []string{got.People[0].ID, got.People[1].ID, got.People[2].ID})
	require.Equal(t, 3.0, got.People[0].Weights["skill"])
	require.True(t, got.Preferences.Wants("p1", "p3"))
	require.True(t, got.Preferences.Avoids("p3", "p2"))
	require.Empty(t, got.GroupingHistory)
	require.NotNil(t, got.CustomWeights)
}

func TestSessionStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.ErrorIs(t, store.Delete(ctx, "missing"), ErrNotFound)
	require.ErrorIs(t, store.AddPerson(ctx, "missing", &models.Person{Name: "x"}), ErrNotFound)

	session := seedSession(t, store)
	require.ErrorIs(t, store.RemovePerson(ctx, session.ID, "nobody"), ErrNotFound)
	require.ErrorIs(t, store.DeleteResult(ctx, session.ID, "nothing"), ErrNotFound)
	_, err = store.GetResult(ctx, session.ID, "nothing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := seedSession(t, store)

	name := "Class 5B"
	mode := models.GenderModeSingle
	updated, err := store.UpdateDetails(ctx, session.ID, SessionUpdate{
		Name:              &name,
		GenderMode:        &mode,
		PreferenceScoring: &models.PreferenceScoring{WantWith: 3, Avoid: -5},
		CustomWeights:     []models.CustomWeightDefinition{{ID: "skill", Name: "Skill"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Class 5B", updated.Name)
	require.Equal(t, models.GenderModeSingle, updated.GenderMode)
	require.Equal(t, &models.PreferenceScoring{WantWith: 3, Avoid: -5}, updated.PreferenceScoring)
	require.Len(t, updated.CustomWeights, 1)
	require.Len(t, updated.People, 3, "people are untouched")
	require.True(t, updated.UpdatedAt.After(session.UpdatedAt))
}

func TestSessionStore_People(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := seedSession(t, store)

	t.Run("add appends at the end", func(t *testing.T) {
		p := &models.Person{Name: "Di", Gender: models.GenderNonbinary}
		require.NoError(t, store.AddPerson(ctx, session.ID, p))
		require.NotEmpty(t, p.ID)

		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, got.People, 4)
		require.Equal(t, p.ID, got.People[3].ID)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		require.NoError(t, store.UpdatePerson(ctx, session.ID, models.Person{
			ID: "p2", Name: "Bob", Gender: models.GenderMale, Weights: map[string]float64{"skill": 1},
		}))
		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, "Bob", got.People[1].Name)
		require.Equal(t, 1.0, got.People[1].Weights["skill"])
	})

	t.Run("remove prunes preferences", func(t *testing.T) {
		require.NoError(t, store.RemovePerson(ctx, session.ID, "p2"))
		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		for _, p := range got.People {
			require.NotEqual(t, "p2", p.ID)
		}
		require.Equal(t, []string{"p3"}, got.Preferences["p1"].WantWith)
		require.Empty(t, got.Preferences["p3"].Avoid)
	})
}

func TestSessionStore_SetPreferences(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := seedSession(t, store)

	err := store.SetPreferences(ctx, session.ID, "p2", models.Preferences{
		WantWith: []string{"p1", "p2", "ghost"},
		Avoid:    []string{"p3"},
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, got.Preferences["p2"].WantWith)
	require.Equal(t, []string{"p3"}, got.Preferences["p2"].Avoid)

	require.ErrorIs(t, store.SetPreferences(ctx, session.ID, "ghost", models.Preferences{}), ErrNotFound)
}

func TestSessionStore_History(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := seedSession(t, store)

	score := 4.0
	first := &models.GroupingResult{
		Groups:              []models.Group{{ID: "g1", Name: "Group 1", MemberIDs: []string{"p1", "p2", "p3"}}},
		Strategy:            models.StrategyPreferenceBased,
		Settings:            models.GroupingSettings{Strategy: models.StrategyPreferenceBased, GroupSize: 3},
		Timestamp:           time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		OverallSatisfaction: &score,
	}
	second := &models.GroupingResult{
		ID:        "r2",
		Groups:    []models.Group{{ID: "g1", Name: "Group 1", MemberIDs: []string{"p3", "p1"}}},
		Strategy:  models.StrategyRandom,
		Settings:  models.GroupingSettings{Strategy: models.StrategyRandom, GroupSize: 2},
		Timestamp: time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AppendResult(ctx, session.ID, first))
	require.NoError(t, store.AppendResult(ctx, session.ID, second))
	require.NotEmpty(t, first.ID)

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.GroupingHistory, 2)
	require.Equal(t, first.ID, got.GroupingHistory[0].ID)
	require.Equal(t, 4.0, *got.GroupingHistory[0].OverallSatisfaction)
	require.Nil(t, got.GroupingHistory[1].OverallSatisfaction)

	res, err := store.GetResult(ctx, session.ID, "r2")
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p1"}, res.Groups[0].MemberIDs)
	require.Equal(t, 2, res.Settings.GroupSize)

	require.NoError(t, store.DeleteResult(ctx, session.ID, first.ID))
	got, err = store.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.GroupingHistory, 1)

	require.NoError(t, store.ClearHistory(ctx, session.ID))
	got, err = store.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, got.GroupingHistory)
}

func TestSessionStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a := seedSession(t, store)
	b := seedSession(t, store)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, b.ID, list[0].ID, "most recently updated first")

	require.NoError(t, store.Delete(ctx, a.ID))
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	var people int64
	require.NoError(t, store.db.Model(&PersonRecord{}).Where("session_id = ?", a.ID).Count(&people).Error)
	require.Zero(t, people)
}

func TestSessionStore_Import(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	existing := seedSession(t, store)

	n, err := store.Import(ctx, []models.Session{
		{
			ID:     existing.ID,
			Name:   "Replaced",
			People: []models.Person{{ID: "x1", Name: "Xi"}},
			GroupingHistory: []models.GroupingResult{{
				ID:       "old-run",
				Groups:   []models.Group{{ID: "g", Name: "Group 1", MemberIDs: []string{"x1"}}},
				Strategy: models.StrategyRandom,
			}},
		},
		{Name: "Fresh"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := store.Get(ctx, existing.ID)
	require.NoError(t, err)
	require.Equal(t, "Replaced", got.Name)
	require.Len(t, got.People, 1)
	require.Len(t, got.GroupingHistory, 1)
	require.Equal(t, "old-run", got.GroupingHistory[0].ID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
