package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/guardhire/guardhire-api/internal/config"
	"github.com/guardhire/guardhire-api/internal/database"
	"github.com/guardhire/guardhire-api/internal/logger"
	"github.com/guardhire/guardhire-api/internal/utils"
)

// setup loads configuration, builds the logger and opens a migrated
// database.
func setup(ctx context.Context) (config.Config, zerolog.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return cfg, log, nil, fmt.Errorf("open database: %w", err)
	}
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.Migrate(mctx, db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return cfg, log, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, log, db, nil
}

// seed inserts the admin account and the welcome news.
func seed(ctx context.Context, cfg config.Config, db *sql.DB) error {
	var admin *database.AdminSeed
	if cfg.AdminPassword != "" {
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin = &database.AdminSeed{Username: cfg.AdminUsername, Mail: cfg.AdminMail, PasswordHash: hash}
	}
	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return database.Seed(sctx, db, admin)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and insert the admin account and welcome news",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := seed(cmd.Context(), cfg, db); err != nil {
				return err
			}
			log.Info().Bool("admin", cfg.AdminPassword != "").Msg("seed complete")
			return nil
		},
	}
}
