// Package pgvector implements the vector index on the memory_facts table
// itself: pgvector's cosine operator answers top-k queries and the row is
// the single source of truth for ownership and validity.
package pgvector

import (
	"context"
	"time"

	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type vectorIndex struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewVectorIndex creates a pgvector-backed vector index over memory_facts.
func NewVectorIndex(db *gorm.DB, timeout time.Duration) interfaces.VectorIndex {
	return &vectorIndex{db: db, timeout: timeout}
}

func (v *vectorIndex) Upsert(ctx context.Context, ownerID, recordID string, vector []float32) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	err := v.db.WithContext(ctx).Model(&types.MemoryFact{}).
		Where("id = ? AND user_id = ?", recordID, ownerID).
		Update("embedding", pgv.NewVector(vector)).Error
	if err != nil {
		return errs.Index("upsert vector", err)
	}
	return nil
}

func (v *vectorIndex) TopK(ctx context.Context, ownerID string, vector []float32, k int, minScore float64, validOnly bool) ([]types.VectorMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	vec := pgv.NewVector(vector)
	query := v.db.WithContext(ctx).Model(&types.MemoryFact{}).
		Select("id, 1 - (embedding <=> ?) AS score", vec).
		Where("user_id = ?", ownerID).
		Where("1 - (embedding <=> ?) >= ?", vec, minScore)
	if validOnly {
		query = query.Where("valid_until IS NULL OR valid_until > ?", time.Now().UTC())
	}

	var matches []types.VectorMatch
	err := query.
		Order("score DESC, created_at ASC").
		Limit(k).
		Scan(&matches).Error
	if err != nil {
		return nil, errs.Index("vector top-k", err)
	}

	logger.Debugf(ctx, "pgvector top-k returned %d matches for owner %s", len(matches), ownerID)
	return matches, nil
}

// Invalidate is a no-op for pgvector: validity is read from the fact row at
// query time, so closing the window in the persistent store is sufficient.
func (v *vectorIndex) Invalidate(ctx context.Context, ownerID, recordID string, at time.Time) error {
	return nil
}
