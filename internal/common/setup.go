package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"challenge-goals-go/internal/challenge"
	"challenge-goals-go/internal/clock"
	"challenge-goals-go/internal/database"
	"challenge-goals-go/internal/formance"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Engine    *challenge.Engine
	Clock     *clock.System
	// Mirror is set when reward points are mirrored into Formance.
	Mirror    *formance.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and wires the challenge engine to it.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	clk, err := clock.NewSystemInZone(cfg.Challenges.TimeZone)
	if err != nil {
		return nil, err
	}

	dbService, err := InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		users  store.UserDirectory = dbService
		mirror *formance.Service
	)
	if cfg.Formance.StackURL != "" {
		mirror, err = formance.NewService(ctx, cfg.Formance, dbService)
		if err != nil {
			dbService.Close()
			return nil, fmt.Errorf("failed to initialize formance points mirror: %w", err)
		}
		users = mirror
	}

	engine, err := challenge.NewEngine(challenge.Config{
		Store:        dbService,
		Users:        users,
		Achievements: dbService,
		Clock:        clk,
	})
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to create challenge engine: %w", err)
	}

	zap.L().Info("Challenge engine ready",
		zap.String("time_zone", clk.Location().String()),
		zap.String("today", clk.Today().Format("2006-01-02")))

	return &Services{
		DbService: dbService,
		Engine:    engine,
		Clock:     clk,
		Mirror:    mirror,
	}, nil
}

// InitializeDatabaseOnly opens just the database with the configured plan quotas.
// Useful for tools that only read or manage users
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	quotas, err := LoadPlanQuotas(cfg.Challenges.PlansFile)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database, quotas)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
