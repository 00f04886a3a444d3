package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/export"
	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/metrics"
	"github.com/kimipsen/grouper/pkg/models"
)

// grouper builds a fresh grouper for one request
func (h *Handler) grouper() *grouping.Grouper {
	opts := []grouping.Option{grouping.WithLogger(h.logger())}
	if h.Locale != "" {
		opts = append(opts, grouping.WithLocale(h.Locale))
	}
	return grouping.New(append(opts, h.GrouperOptions...)...)
}

// observe records the outcome of a run and passes its values through
func (h *Handler) observe(strategy models.Strategy, started time.Time, result *models.GroupingResult, err error) (*models.GroupingResult, error) {
	outcome := metrics.OutcomeSuccess
	var (
		satisfaction *float64
		gerr         *grouping.Error
	)
	switch {
	case errors.As(err, &gerr):
		outcome = metrics.OutcomeInvalid
	case err != nil:
		outcome = metrics.OutcomeInternalFail
	default:
		satisfaction = result.OverallSatisfaction
	}
	h.Metrics.ObserveRun(string(strategy), outcome, time.Since(started), satisfaction)
	return result, err
}

func (h *Handler) createGroups(req grouping.Request) (*models.GroupingResult, error) {
	started := time.Now()
	result, err := h.grouper().CreateGroups(req)
	return h.observe(req.Settings.Strategy, started, result, err)
}

// buildResponse adds display figures to a result
func buildResponse(result *models.GroupingResult, people []models.Person, scoring *models.PreferenceScoring) models.GroupResponse {
	resp := models.GroupResponse{
		Result:     result,
		Statistics: grouping.GroupStatistics(result.Groups),
	}
	effective := models.DefaultPreferenceScoring
	if scoring != nil {
		effective = *scoring
	}

	switch result.Strategy {
	case models.StrategyPreferenceBased:
		maxScore := grouping.MaxPossibleScore(len(people), result.Settings.GroupSize, effective)
		resp.MaxPossibleScore = &maxScore
		if result.OverallSatisfaction != nil {
			if pct, ok := grouping.SatisfactionPercentage(*result.OverallSatisfaction, len(people), result.Settings.GroupSize, effective); ok {
				resp.SatisfactionPercentage = &pct
			}
		}
	case models.StrategyWeighted:
		resp.WeightSpread = grouping.WeightSpreads(result.Groups, people, grouping.ExpandWeightIDs(result.Settings.WeightIDs))
	}
	return resp
}

// GroupJSON handles the stateless grouping request
func (h *Handler) GroupJSON(c *gin.Context) {
	var input models.GroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkRequestPeople(input.People); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.createGroups(grouping.Request{
		People:      input.People,
		Settings:    input.Settings,
		Preferences: input.Preferences,
		Scoring:     input.Scoring,
		Locale:      input.Locale,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.RecordUsage(c, result, len(input.People))
	c.JSON(http.StatusOK, buildResponse(result, input.People, input.Scoring))
}

// GroupCSV groups the people of an uploaded CSV file and returns the groups
// as CSV
func (h *Handler) GroupCSV(c *gin.Context) {
	peopleFile, _ := c.FormFile("people_file")
	if peopleFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "people_file is required"})
		return
	}

	settings, err := settingsFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := peopleFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open people file"})
		return
	}
	defer f.Close()

	people, err := export.ReadPeopleCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.createGroups(grouping.Request{
		People:   people,
		Settings: settings,
		// the CSV format carries no preferences
		Preferences: models.PreferenceMap{},
		Locale:      c.PostForm("locale"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	var out strings.Builder
	if err := export.WriteGroupsCSV(&out, *result, people); err != nil {
		h.respondError(c, err)
		return
	}

	h.RecordUsage(c, result, len(people))
	c.JSON(http.StatusOK, gin.H{"csv": out.String(), "statistics": grouping.GroupStatistics(result.Groups)})
}

func settingsFromForm(c *gin.Context) (models.GroupingSettings, error) {
	settings := models.GroupingSettings{
		Strategy:   models.Strategy(strings.ToUpper(c.DefaultPostForm("strategy", string(models.StrategyRandom)))),
		GenderMode: models.GenderMode(c.PostForm("gender_mode")),
	}

	size, err := strconv.Atoi(c.PostForm("group_size"))
	if err != nil {
		return settings, errors.New("group_size must be an integer")
	}
	settings.GroupSize = size

	if raw := c.PostForm("allow_partial_groups"); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			return settings, errors.New("allow_partial_groups must be a boolean")
		}
		settings.AllowPartialGroups = &allow
	}

	for _, id := range strings.Split(c.PostForm("weight_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			settings.WeightIDs = append(settings.WeightIDs, id)
		}
	}
	return settings, nil
}

// Suggestions returns group size suggestions for ?people=N
func (h *Handler) Suggestions(c *gin.Context) {
	n, err := strconv.Atoi(c.Query("people"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "people must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": grouping.SuggestGroupSizes(n)})
}
