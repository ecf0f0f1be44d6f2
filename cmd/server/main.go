package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursesearch/internal/catalog"
	"coursesearch/internal/config"
	"coursesearch/internal/db"
	"coursesearch/internal/logging"
	"coursesearch/internal/moderation"
	"coursesearch/internal/router"
	"coursesearch/internal/services"
	"coursesearch/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	seed := flag.Bool("seed", false, "seed the demo catalog and an admin user, then exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close(database)

	stats := services.NewStatsService(database, utils.RatingConfig{
		PriorWeight: utils.DefaultRatingConfig.PriorWeight,
		PriorMean:   float64(cfg.RatingMin+cfg.RatingMax) / 2,
	}, logger)

	if *seed {
		if _, err := db.SeedCourses(ctx, database, db.DemoCourses); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed catalog")
		}
		if _, err := db.SeedAdmin(ctx, database, "admin"); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed admin")
		}
		if _, err := stats.RefreshAll(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to compute course stats")
		}
		return
	}

	courses := catalog.NewStore(database)
	notifier := services.NewNotifier(database, logger)
	mod := moderation.New(database, courses, moderation.PolicyFromConfig(cfg),
		moderation.WithLogger(logger),
		moderation.WithListener(notifier.Listen),
		moderation.WithListener(stats.Listen),
	)

	// 启动时全量重算一次，之后由后台 worker 增量更新
	if _, err := stats.RefreshAll(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to refresh course stats on startup")
	}
	go stats.Run(ctx)

	engine := router.New(router.Deps{
		DB:            database,
		Catalog:       courses,
		Moderation:    mod,
		Notifier:      notifier,
		Stats:         stats,
		Logger:        logger,
		SessionSecret: cfg.SessionSecret,
		SiteURL:       cfg.SiteURL,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()
	logger.Info().Str("addr", srv.Addr).Int("flag_threshold", mod.Policy().FlagThreshold).Msg("Course search server started")

	<-ctx.Done()
	stop()
	logger.Info().Msg("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down")
	}
}
