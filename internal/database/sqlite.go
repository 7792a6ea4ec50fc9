package database

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// The gateway's conditional writes rely on transactions being serialised.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&gateway.Node{}, &users.Account{}, &migrationRecord{}); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized", zap.String("path", path))
	return db, nil
}
