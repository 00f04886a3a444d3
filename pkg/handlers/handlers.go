package handlers

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kimipsen/grouper/pkg/auth"
	"github.com/kimipsen/grouper/pkg/database"
	"github.com/kimipsen/grouper/pkg/export"
	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/metrics"
	"github.com/kimipsen/grouper/pkg/models"
)

//go:embed static/*
var staticEmbed embed.FS

// DefaultRateLimit is the daily request allowance of a new API key
const DefaultRateLimit = 10000

// Handler contains dependencies for the route handlers
type Handler struct {
	DB       *gorm.DB
	Auth     *auth.Authenticator
	Sessions *database.SessionStore
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
	// Locale orders group members when a request names none
	Locale string
	// RateLimit applies to keys created implicitly on first use
	RateLimit int
	// GrouperOptions are appended to every per-request grouper
	GrouperOptions []grouping.Option
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return logging.NewNop()
	}
	return h.Logger
}

func (h *Handler) rateLimit() int {
	if h.RateLimit <= 0 {
		return DefaultRateLimit
	}
	return h.RateLimit
}

// respondError maps core, storage and import errors onto HTTP responses
func (h *Handler) respondError(c *gin.Context, err error) {
	var gerr *grouping.Error
	switch {
	case errors.As(err, &gerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": gerr.Key, "params": gerr.Params})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrInvalidImport):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger().Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	// Strip "Bearer " if present
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	return token
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key for grouping routes and enforces
// the key's daily rate limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		if err := h.DB.Where(database.APIKey{Key: key}).Attrs(database.APIKey{
			Name:       userID,
			KeyPreview: auth.KeyPreview(key),
			RateLimit:  h.rateLimit(),
		}).FirstOrCreate(&apiKey).Error; err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}

		var today database.APIUsage
		err = h.DB.Where("key_id = ? AND date = ?", apiKey.ID, usageDate()).First(&today).Error
		if err == nil && apiKey.RateLimit > 0 && today.RequestCount >= apiKey.RateLimit {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily rate limit exceeded"})
			c.Abort()
			return
		}

		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

func usageDate() string {
	return time.Now().Format("2006-01-02")
}

// RecordUsage adds one grouping run to today's usage row for the calling key
// using a single upsert
func (h *Handler) RecordUsage(c *gin.Context, result *models.GroupingResult, peopleCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists || result == nil {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	usage := database.APIUsage{
		KeyID:        apiKey.ID,
		Date:         usageDate(),
		RequestCount: 1,
		TotalPeople:  peopleCount,
		TotalGroups:  len(result.Groups),
	}
	usage.AddRun(result.Strategy)

	updates := map[string]interface{}{
		"request_count": gorm.Expr("request_count + ?", 1),
		"total_people":  gorm.Expr("total_people + ?", peopleCount),
		"total_groups":  gorm.Expr("total_groups + ?", len(result.Groups)),
	}
	if column, ok := database.RunColumn(result.Strategy); ok {
		updates[column] = gorm.Expr(column+" + ?", 1)
	}

	// OnConflict works on both Postgres and SQLite
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&usage).Error
	if err != nil {
		h.logger().Warn("could not record usage", "key_id", apiKey.ID, "error", err)
	}
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = h.rateLimit()
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: auth.KeyPreview(key),
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	res := h.DB.Delete(&database.APIKey{}, "id = ?", id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
