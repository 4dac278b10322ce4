package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/logger"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"golang.org/x/term"
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

	// ─── Initialize Service ────────────────────────────────────────────
	// Users created here never log in through this process, so the
	// session store is not needed.
	roleRepo := repository.NewRoleRepository(pool)
	authService := service.NewAuthService(cfg, nil)
	userService := service.NewUserService(repository.NewUserRepository(pool), roleRepo, authService, log)

	roles, err := roleRepo.ListRolesWithPermissions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list roles")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Role
	defaultRole := 0
	fmt.Println("Available roles:")
	for _, r := range roles {
		fmt.Printf("  %d) %s\n", r.ID, r.Name)
		if r.Name == model.RoleSurveyor {
			defaultRole = r.ID
		}
	}
	fmt.Printf("Enter Role ID (default %d): ", defaultRole)
	roleIDStr, _ := reader.ReadString('\n')
	roleIDStr = strings.TrimSpace(roleIDStr)
	roleID := defaultRole
	if roleIDStr != "" {
		p, err := strconv.Atoi(roleIDStr)
		if err != nil {
			fmt.Println("Error: Role ID must be a number")
			return
		}
		roleID = p
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := userService.Create(ctx, &model.CreateUserRequest{
		Email:    email,
		Name:     name,
		Password: password,
		RoleID:   roleID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! User '%s' (%s) created with ID %d and role %s\n", user.Name, user.Email, user.ID, user.RoleName)
}
