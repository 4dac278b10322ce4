package main

import (
	"context"
	"fmt"

	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/logger"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	roleService := service.NewRoleService(repository.NewRoleRepository(pool))

	fmt.Println("=== Sync Permissions ===")
	fmt.Printf("Ensuring %d permission codes exist and granting all of them to %q.\n",
		len(model.AllPermissions), model.RoleSuperAdmin)

	granted, err := roleService.SyncSuperAdmin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sync permissions")
	}

	fmt.Printf("\nSuccess! %d new grant(s) added to %s.\n", granted, model.RoleSuperAdmin)
}
