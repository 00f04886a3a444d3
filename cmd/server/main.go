package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kimipsen/grouper/pkg/auth"
	"github.com/kimipsen/grouper/pkg/config"
	"github.com/kimipsen/grouper/pkg/database"
	"github.com/kimipsen/grouper/pkg/handlers"
	"github.com/kimipsen/grouper/pkg/logging"
	"github.com/kimipsen/grouper/pkg/metrics"
)

func main() {
	// .env is looked up in the working directory and its parents
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stderr)

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("could not open database", "error", err)
		os.Exit(1)
	}

	authn := auth.New(cfg)
	if err := authn.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Warn("could not create default admin", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := &handlers.Handler{
		DB:        db,
		Auth:      authn,
		Sessions:  database.NewSessionStore(db),
		Metrics:   metrics.NewPrometheus(reg, "grouper"),
		Logger:    logger,
		Locale:    cfg.Locale,
		RateLimit: cfg.DefaultRateLimit,
	}

	r := gin.Default()
	handlers.RegisterRoutes(r, h)

	logger.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("could not run server", "error", err)
		os.Exit(1)
	}
}
