package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type factRepository struct {
	db *gorm.DB
}

// NewFactRepository creates a postgres-backed memory fact repository.
func NewFactRepository(db *gorm.DB) interfaces.FactRepository {
	return &factRepository{db: db}
}

func (r *factRepository) Create(ctx context.Context, fact *types.MemoryFact) error {
	if err := r.db.WithContext(ctx).Create(fact).Error; err != nil {
		return errs.Storage("create fact", err)
	}
	return nil
}

func (r *factRepository) GetByID(ctx context.Context, id string) (*types.MemoryFact, error) {
	var fact types.MemoryFact
	err := r.db.WithContext(ctx).First(&fact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("fact", id)
	}
	if err != nil {
		return nil, errs.Storage("get fact", err)
	}
	return &fact, nil
}

func (r *factRepository) GetByIDs(ctx context.Context, ownerID string, ids []string) ([]*types.MemoryFact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var facts []*types.MemoryFact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Find(&facts).Error
	if err != nil {
		return nil, errs.Storage("get facts by ids", err)
	}
	return facts, nil
}

func (r *factRepository) TouchAccess(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&types.MemoryFact{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": at,
		}).Error
	if err != nil {
		return errs.Storage("touch fact access", err)
	}
	return nil
}

func (r *factRepository) Supersede(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&types.MemoryFact{}).
		Where("id = ? AND valid_until IS NULL", id).
		Update("valid_until", at)
	if res.Error != nil {
		return errs.Storage("supersede fact", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&types.MemoryFact{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errs.Storage("supersede fact", err)
		}
		if count == 0 {
			return errs.NotFound("fact", id)
		}
		return fmt.Errorf("fact %q is already superseded", id)
	}
	return nil
}

func (r *factRepository) Summary(ctx context.Context, ownerID string) (*types.MemorySummary, error) {
	var row struct {
		TotalFacts    int64
		FactTypes     int64
		AvgConfidence float64
		LastUpdated   *time.Time
	}
	err := r.db.WithContext(ctx).Model(&types.MemoryFact{}).
		Select("COUNT(*) AS total_facts, COUNT(DISTINCT fact_type) AS fact_types, COALESCE(AVG(confidence), 0) AS avg_confidence, MAX(created_at) AS last_updated").
		Where("user_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return nil, errs.Storage("memory summary", err)
	}
	return &types.MemorySummary{
		UserID:        ownerID,
		TotalFacts:    row.TotalFacts,
		FactTypes:     row.FactTypes,
		AvgConfidence: row.AvgConfidence,
		LastUpdated:   row.LastUpdated,
	}, nil
}
