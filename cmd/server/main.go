package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/handler"
	"github.com/stemsi/pemetaan-keswa/internal/logger"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/router"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"github.com/stemsi/pemetaan-keswa/internal/validator"
	"github.com/stemsi/pemetaan-keswa/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("kabupaten", cfg.DefaultKabupaten).
		Msg("Starting Pemetaan Keswa Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Migrations ────────────────────────────────────────────────────
	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	districtRepo := repository.NewDistrictRepository(pool)
	facilityRepo := repository.NewFacilityRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	responseRepo := repository.NewSurveyResponseRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool, rdb)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, roleRepo, authService, log)
	roleService := service.NewRoleService(roleRepo)
	regionService := service.NewRegionService(districtRepo, rdb, cfg, log)
	templateService := service.NewTemplateService(templateRepo, regionService, rdb, cfg, log)
	facilityService := service.NewFacilityService(facilityRepo, regionService, log)
	surveyService := service.NewSurveyService(responseRepo, facilityRepo, monitorRepo, templateService, rdb, log)
	mediaService := service.NewMediaService(cfg, log)
	dashboardService := service.NewDashboardService(dashboardRepo, responseRepo, cfg)
	monitorService := service.NewMonitorService(monitorRepo, templateService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, userService, log),
		User:      handler.NewUserHandler(userService, authService, log),
		Role:      handler.NewRoleHandler(roleService, log),
		Template:  handler.NewTemplateHandler(templateService, log),
		Survey:    handler.NewSurveyHandler(surveyService, log),
		Region:    handler.NewRegionHandler(regionService, log),
		Facility:  handler.NewFacilityHandler(facilityService, log),
		Media:     handler.NewMediaHandler(mediaService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		Monitor:   handler.NewMonitorHandler(monitorService, log),
		System:    handler.NewSystemHandler(pool, rdb, log),
		WS:        handler.NewWSHandler(surveyService, log, cfg.AllowedOrigins),
	}

	// ─── Startup Sync ─────────────────────────────────────────────────
	if granted, err := roleService.SyncSuperAdmin(ctx); err != nil {
		log.Warn().Err(err).Msg("Superadmin permission sync failed")
	} else if granted > 0 {
		log.Info().Int64("granted", granted).Msg("Superadmin permissions synced")
	}

	// Load all published templates into Redis BEFORE accepting traffic.
	if err := templateService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Start Background Workers ─────────────────────────────────────
	// Workers get their own context so they outlive the HTTP server and
	// drain the queues it filled.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, workerCtx := errgroup.WithContext(workerCtx)

	answerWorker := worker.NewAnswerWorker(responseRepo, rdb, log)
	progressWorker := worker.NewProgressWorker(responseRepo, rdb, log)

	workers.Go(func() error { return answerWorker.Start(workerCtx) })
	workers.Go(func() error { return progressWorker.Start(workerCtx) })

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.SetupRouter(authService, handlers, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server error")
	}

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the queues to drain.
	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker exited with error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
