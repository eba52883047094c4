package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/calderae/atalaya/internal/alerts"
	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/config"
	"github.com/calderae/atalaya/internal/engine"
	"github.com/calderae/atalaya/internal/ml"
	"github.com/calderae/atalaya/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/atalaya/atalaya.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadModelContext loads the trained model artifacts from the configured
// directory. All artifact problems surface as ErrModelUnavailable.
func loadModelContext() (*ml.Context, error) {
	modelDir := viper.GetString("model.dir")
	if modelDir == "" {
		modelDir = "$HOME/.local/share/atalaya/model"
	}

	return ml.LoadContext(config.ExpandPath(modelDir))
}

// newScoringEngine wires the full scoring stack: storage, model context,
// and the alert lifecycle engine.
func newScoringEngine(store *storage.SQLiteStorage) (*engine.ScoringEngine, *alerts.Engine, error) {
	mlCtx, err := loadModelContext()
	if err != nil {
		return nil, nil, common.NewUserError(
			"scoring model unavailable; point model.dir at the exported artifact directory", err)
	}

	alertEngine := alerts.NewEngine(store)
	scoring, err := engine.New(store, mlCtx, alertEngine)
	if err != nil {
		return nil, nil, err
	}

	return scoring, alertEngine, nil
}
