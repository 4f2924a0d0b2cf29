package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"blogapp/internal/config"
	"blogapp/internal/database"
	"blogapp/internal/logging"
	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/service"

	"go.uber.org/zap"
)

func main() {
	// Define subcommands
	roleCmd := flag.NewFlagSet("set-role", flag.ExitOnError)
	purgeCmd := flag.NewFlagSet("purge-resets", flag.ExitOnError)

	// set-role flags
	roleEmail := roleCmd.String("email", "", "Email of the account to change (required)")
	roleName := roleCmd.String("role", string(models.RoleAdmin), "Role to assign: user or admin")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		fatal(fmt.Errorf("failed to initialize database: %w", err))
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx, logger); err != nil {
		fatal(fmt.Errorf("failed to run migrations: %w", err))
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	store := service.NewCredentialStore(userRepo, hasher, cfg.ResetTokenTTL)

	switch os.Args[1] {
	case "set-role":
		roleCmd.Parse(os.Args[2:])
		if *roleEmail == "" {
			fmt.Println("Error: -email flag is required")
			roleCmd.PrintDefaults()
			os.Exit(1)
		}
		users := service.NewUserService(db, store, userRepo, postRepo, security.DefaultPolicy(), logger)
		if err := users.SetRole(ctx, *roleEmail, models.Role(*roleName)); err != nil {
			fatal(err)
		}
		logger.Info("role updated", zap.String("email", *roleEmail), zap.String("role", *roleName))

	case "purge-resets":
		purgeCmd.Parse(os.Args[2:])
		n, err := store.PurgeExpiredResets(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Purged %d expired reset token(s)\n", n)

	default:
		printUsage()
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "admin: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Blog administration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  admin set-role -email <address> [-role admin|user]")
	fmt.Println("  admin purge-resets")
}
