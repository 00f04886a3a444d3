package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/auth"
	"github.com/kimipsen/grouper/pkg/config"
	"github.com/kimipsen/grouper/pkg/database"
	"github.com/kimipsen/grouper/pkg/handlers"
	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/metrics"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	cfg := config.Load(".env", "../.env")
	logger := logging.New(cfg.LogLevel, os.Stderr)

	// Initialize DB
	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("could not open database", "error", err)
		panic(err)
	}
	authn := auth.New(cfg)
	if err := authn.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Warn("could not create default admin", "error", err)
	}

	h := &handlers.Handler{
		DB:        db,
		Auth:      authn,
		Sessions:  database.NewSessionStore(db),
		Metrics:   metrics.NewPrometheus(nil, "grouper"),
		Logger:    logger,
		Locale:    cfg.Locale,
		RateLimit: cfg.DefaultRateLimit,
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	handlers.RegisterRoutes(r, h)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
