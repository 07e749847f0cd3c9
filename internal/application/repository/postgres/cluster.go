package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type clusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a postgres-backed semantic cluster repository.
func NewClusterRepository(db *gorm.DB) interfaces.ClusterRepository {
	return &clusterRepository{db: db}
}

func (r *clusterRepository) ListByUser(ctx context.Context, ownerID string) ([]*types.SemanticCluster, error) {
	var clusters []*types.SemanticCluster
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("id ASC").
		Find(&clusters).Error
	if err != nil {
		return nil, errs.Storage("list clusters", err)
	}
	return clusters, nil
}

func (r *clusterRepository) GetByID(ctx context.Context, id string) (*types.SemanticCluster, error) {
	var cluster types.SemanticCluster
	err := r.db.WithContext(ctx).First(&cluster, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("cluster", id)
	}
	if err != nil {
		return nil, errs.Storage("get cluster", err)
	}
	return &cluster, nil
}

func (r *clusterRepository) Create(ctx context.Context, cluster *types.SemanticCluster, membership *types.ClusterMembership) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cluster).Error; err != nil {
			return err
		}
		return tx.Create(membership).Error
	})
	if err != nil {
		return errs.Storage("create cluster", err)
	}
	return nil
}

// AttachMember folds the embedding into the centroid under a row lock so
// concurrent assignments to the same cluster serialize instead of losing
// updates.
func (r *clusterRepository) AttachMember(ctx context.Context, clusterID string, embedding []float32, membership *types.ClusterMembership) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cluster types.SemanticCluster
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cluster, "id = ?", clusterID).Error; err != nil {
			return err
		}

		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(membership)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			// (fact, cluster) pair already exists; memberships are singular.
			return nil
		}

		centroid := utils.IncrementalMean(cluster.Centroid.Slice(), embedding, cluster.MemberCount)
		return tx.Model(&types.SemanticCluster{}).
			Where("id = ?", clusterID).
			Updates(map[string]interface{}{
				"centroid":     pgvector.NewVector(centroid),
				"member_count": gorm.Expr("member_count + 1"),
				"updated_at":   time.Now().UTC(),
			}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("cluster", clusterID)
	}
	if err != nil {
		return errs.Storage("attach cluster member", err)
	}
	return nil
}

func (r *clusterRepository) ListMembers(ctx context.Context, clusterID string) ([]*types.ClusterMembership, error) {
	var members []*types.ClusterMembership
	err := r.db.WithContext(ctx).
		Where("cluster_id = ?", clusterID).
		Find(&members).Error
	if err != nil {
		return nil, errs.Storage("list cluster members", err)
	}
	return members, nil
}
