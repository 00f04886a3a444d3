package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/database"
	"github.com/kimipsen/grouper/pkg/models"
)

// usageWindow is how many days of history GetMyUsage reports
const usageWindow = 30

// UsageSummary aggregates a key's daily usage rows
type UsageSummary struct {
	Requests      int                     `json:"requests"`
	People        int                     `json:"people"`
	Groups        int                     `json:"groups"`
	AvgGroupSize  float64                 `json:"average_group_size"`
	RunsBy        map[models.Strategy]int `json:"runs_by_strategy"`
	TodayRequests int                     `json:"today_requests"`
	Remaining     *int                    `json:"remaining_today,omitempty"`
}

func summarizeUsage(rows []database.APIUsage, today string, rateLimit int) UsageSummary {
	sum := UsageSummary{RunsBy: database.APIUsage{}.Runs()}
	for _, u := range rows {
		sum.Requests += u.RequestCount
		sum.People += u.TotalPeople
		sum.Groups += u.TotalGroups
		for strategy, n := range u.Runs() {
			sum.RunsBy[strategy] += n
		}
		if u.Date == today {
			sum.TodayRequests = u.RequestCount
		}
	}
	if sum.Groups > 0 {
		sum.AvgGroupSize = float64(sum.People) / float64(sum.Groups)
	}
	if rateLimit > 0 {
		remaining := max(rateLimit-sum.TodayRequests, 0)
		sum.Remaining = &remaining
	}
	return sum
}

// GetMyUsage reports the calling key's recent usage with per-strategy run counts
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var rows []database.APIUsage
	err := h.DB.WithContext(c.Request.Context()).
		Where("key_id = ?", apiKey.ID).
		Order("date desc").
		Limit(usageWindow).
		Find(&rows).Error
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": rows,
		"totals":        summarizeUsage(rows, usageDate(), apiKey.RateLimit),
	})
}
