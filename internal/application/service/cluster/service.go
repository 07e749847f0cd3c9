// Package cluster implements the incremental clustering engine. Facts are
// folded into the nearest existing cluster above a similarity threshold or
// open a new one; memberships are append-only and centroids are running
// means, so each assignment is O(clusters) compare plus O(1) update.
package cluster

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type service struct {
	repo      interfaces.ClusterRepository
	threshold float64
}

// NewService creates the clustering engine. A fact joins an existing
// cluster only when centroid cosine similarity is strictly above threshold.
func NewService(repo interfaces.ClusterRepository, threshold float64) interfaces.ClusterService {
	return &service{repo: repo, threshold: threshold}
}

func (s *service) Assign(ctx context.Context, fact *types.MemoryFact) (*types.ClusterAssignment, error) {
	clusters, err := s.repo.ListByUser(ctx, fact.UserID)
	if err != nil {
		return nil, err
	}

	embedding := fact.Embedding.Slice()

	// Clusters arrive ordered by id ascending, so keeping the first of any
	// equal-similarity pair implements the lowest-id tie-break.
	var best *types.SemanticCluster
	var bestSim float64
	for _, c := range clusters {
		sim := utils.CosineSimilarity(c.Centroid.Slice(), embedding)
		if sim <= s.threshold {
			continue
		}
		if best == nil || sim > bestSim {
			best = c
			bestSim = sim
		}
	}

	now := time.Now().UTC()

	if best != nil {
		membership := &types.ClusterMembership{
			FactID:     fact.ID,
			ClusterID:  best.ID,
			Similarity: bestSim,
			CreatedAt:  now,
		}
		if err := s.repo.AttachMember(ctx, best.ID, embedding, membership); err != nil {
			return nil, err
		}
		logger.Debugf(ctx, "fact %s joined cluster %s (similarity %.4f)", fact.ID, best.ID, bestSim)
		return &types.ClusterAssignment{
			FactID:     fact.ID,
			ClusterID:  best.ID,
			Similarity: bestSim,
		}, nil
	}

	newCluster := &types.SemanticCluster{
		ID:          uuid.New().String(),
		UserID:      fact.UserID,
		Centroid:    pgvector.NewVector(embedding),
		Keywords:    strings.Join(utils.Tokenize(fact.Content), ","),
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	membership := &types.ClusterMembership{
		FactID:     fact.ID,
		ClusterID:  newCluster.ID,
		Similarity: 1.0,
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, newCluster, membership); err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "fact %s opened cluster %s", fact.ID, newCluster.ID)
	return &types.ClusterAssignment{
		FactID:     fact.ID,
		ClusterID:  newCluster.ID,
		Similarity: 1.0,
		Created:    true,
	}, nil
}
