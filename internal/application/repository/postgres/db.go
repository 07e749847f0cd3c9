// Package postgres implements the persistent store repositories on
// PostgreSQL through gorm, with pgvector columns for embeddings.
package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
)

// Open connects to PostgreSQL, ensures the pgvector extension, and migrates
// the schema.
func Open(ctx context.Context, cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to ensure pgvector extension: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&types.Conversation{},
		&types.Message{},
		&types.MemoryFact{},
		&types.SemanticCluster{},
		&types.ClusterMembership{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info(ctx, "postgres schema ready")
	return db, nil
}
