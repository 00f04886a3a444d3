package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/database"
	"github.com/kimipsen/grouper/pkg/models"
)

// ListSessions returns every stored session
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Sessions.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateSession stores a new session
func (h *Handler) CreateSession(c *gin.Context) {
	var session models.Session
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if session.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !session.GenderMode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gender_mode"})
		return
	}
	if err := models.CheckPeople(session.People); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// history is only ever appended by grouping runs
	session.GroupingHistory = nil

	if err := h.Sessions.Create(c.Request.Context(), &session); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusCreated, session.ID)
}

// GetSession returns one session
func (h *Handler) GetSession(c *gin.Context) {
	h.respondSession(c, http.StatusOK, c.Param("id"))
}

func (h *Handler) respondSession(c *gin.Context, status int, id string) {
	session, err := h.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, session)
}

// UpdateSession edits a session's details
func (h *Handler) UpdateSession(c *gin.Context) {
	var update database.SessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if update.Name != nil && *update.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}
	if update.GenderMode != nil && !update.GenderMode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gender_mode"})
		return
	}

	session, err := h.Sessions.UpdateDetails(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session and everything it owns
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

func bindPerson(c *gin.Context) (models.Person, bool) {
	var person models.Person
	if err := c.ShouldBindJSON(&person); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return person, false
	}
	if person.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return person, false
	}
	if !person.Gender.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown gender"})
		return person, false
	}
	return person, true
}

// AddPerson adds a person to a session
func (h *Handler) AddPerson(c *gin.Context) {
	person, ok := bindPerson(c)
	if !ok {
		return
	}
	person.CreatedAt = time.Time{}
	if err := h.Sessions.AddPerson(c.Request.Context(), c.Param("id"), &person); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, person)
}

// UpdatePerson replaces a person's details
func (h *Handler) UpdatePerson(c *gin.Context) {
	person, ok := bindPerson(c)
	if !ok {
		return
	}
	person.ID = c.Param("pid")
	if err := h.Sessions.UpdatePerson(c.Request.Context(), c.Param("id"), person); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

// RemovePerson removes a person and every preference naming them
func (h *Handler) RemovePerson(c *gin.Context) {
	if err := h.Sessions.RemovePerson(c.Request.Context(), c.Param("id"), c.Param("pid")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Person removed"})
}

// SetPreferences replaces the preferences of one person
func (h *Handler) SetPreferences(c *gin.Context) {
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Sessions.SetPreferences(c.Request.Context(), c.Param("id"), c.Param("pid"), prefs); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, c.Param("id"))
}

// GroupSession runs a grouping over a session's people and appends the
// result to its history
func (h *Handler) GroupSession(c *gin.Context) {
	var settings models.GroupingSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	session, err := h.Sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	started := time.Now()
	result, err := h.grouper().CreateGroupsForSession(session, settings)
	if _, err = h.observe(settings.Strategy, started, result, err); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Sessions.AppendResult(ctx, session.ID, result); err != nil {
		h.respondError(c, err)
		return
	}

	h.RecordUsage(c, result, len(session.People))
	c.JSON(http.StatusCreated, buildResponse(result, session.People, session.PreferenceScoring))
}

// ListHistory returns a session's grouping history, oldest first
func (h *Handler) ListHistory(c *gin.Context) {
	session, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": session.GroupingHistory})
}

// ClearHistory removes every grouping result of a session
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.Sessions.ClearHistory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// DeleteResult removes one grouping result from a session's history
func (h *Handler) DeleteResult(c *gin.Context) {
	if err := h.Sessions.DeleteResult(c.Request.Context(), c.Param("id"), c.Param("rid")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Result deleted"})
}

// ResultStats returns the statistics of one stored grouping result
func (h *Handler) ResultStats(c *gin.Context) {
	session, result, ok := h.loadResult(c)
	if !ok {
		return
	}
	resp := buildResponse(result, session.People, session.PreferenceScoring)
	c.JSON(http.StatusOK, gin.H{
		"result_id":               result.ID,
		"statistics":              resp.Statistics,
		"max_possible_score":      resp.MaxPossibleScore,
		"satisfaction_percentage": resp.SatisfactionPercentage,
		"weight_spread":           resp.WeightSpread,
	})
}

func (h *Handler) loadResult(c *gin.Context) (*models.Session, *models.GroupingResult, bool) {
	ctx := c.Request.Context()
	session, err := h.Sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, nil, false
	}
	result, err := h.Sessions.GetResult(ctx, session.ID, c.Param("rid"))
	if err != nil {
		h.respondError(c, err)
		return nil, nil, false
	}
	return session, result, true
}
