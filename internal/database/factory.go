package database

import (
	"fmt"
	"path/filepath"

	"mirror-go/internal/config"
	"mirror-go/internal/mirror"
)

// HistoryFileName is the SQLite file created inside data_dir.
const HistoryFileName = "history.db"

// NewDatabaseFromConfig creates a History implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (mirror.History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, HistoryFileName))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
