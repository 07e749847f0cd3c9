package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type stubClusterRepo struct {
	clusters []*types.SemanticCluster

	created     *types.SemanticCluster
	attachedTo  string
	membership  *types.ClusterMembership
	listErr     error
	attachCalls int
}

func (s *stubClusterRepo) ListByUser(ctx context.Context, ownerID string) ([]*types.SemanticCluster, error) {
	return s.clusters, s.listErr
}

func (s *stubClusterRepo) GetByID(ctx context.Context, id string) (*types.SemanticCluster, error) {
	for _, c := range s.clusters {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *stubClusterRepo) Create(ctx context.Context, cluster *types.SemanticCluster, membership *types.ClusterMembership) error {
	s.created = cluster
	s.membership = membership
	return nil
}

func (s *stubClusterRepo) AttachMember(ctx context.Context, clusterID string, embedding []float32, membership *types.ClusterMembership) error {
	s.attachCalls++
	s.attachedTo = clusterID
	s.membership = membership
	return nil
}

func (s *stubClusterRepo) ListMembers(ctx context.Context, clusterID string) ([]*types.ClusterMembership, error) {
	return nil, nil
}

func newFact(id string, embedding []float32) *types.MemoryFact {
	return &types.MemoryFact{
		ID:        id,
		UserID:    "u1",
		FactType:  "preference",
		Content:   "user enjoys hiking in the mountains",
		Embedding: pgvector.NewVector(embedding),
	}
}

func TestAssignOpensClusterWhenNoneMatch(t *testing.T) {
	repo := &stubClusterRepo{}
	svc := NewService(repo, 0.75)

	assignment, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	require.NoError(t, err)

	assert.True(t, assignment.Created)
	assert.Equal(t, 1.0, assignment.Similarity)
	require.NotNil(t, repo.created)
	assert.Equal(t, int64(1), repo.created.MemberCount)
	assert.Equal(t, []float32{1, 0, 0}, repo.created.Centroid.Slice())
	assert.Contains(t, repo.created.Keywords, "hiking")
}

func TestAssignJoinsNearestCluster(t *testing.T) {
	far := &types.SemanticCluster{ID: "c1", UserID: "u1", Centroid: pgvector.NewVector([]float32{0, 1, 0})}
	near := &types.SemanticCluster{ID: "c2", UserID: "u1", Centroid: pgvector.NewVector([]float32{1, 0.1, 0})}
	repo := &stubClusterRepo{clusters: []*types.SemanticCluster{far, near}}
	svc := NewService(repo, 0.75)

	assignment, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	require.NoError(t, err)

	assert.False(t, assignment.Created)
	assert.Equal(t, "c2", assignment.ClusterID)
	assert.Equal(t, "c2", repo.attachedTo)
	assert.InDelta(t,
		utils.CosineSimilarity([]float32{1, 0.1, 0}, []float32{1, 0, 0}),
		assignment.Similarity, 1e-9)
}

func TestAssignBelowThresholdOpensNewCluster(t *testing.T) {
	existing := &types.SemanticCluster{ID: "c1", UserID: "u1", Centroid: pgvector.NewVector([]float32{0, 1, 0})}
	repo := &stubClusterRepo{clusters: []*types.SemanticCluster{existing}}
	svc := NewService(repo, 0.75)

	assignment, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	require.NoError(t, err)

	assert.True(t, assignment.Created)
	assert.Zero(t, repo.attachCalls)
	assert.NotEqual(t, "c1", assignment.ClusterID)
}

func TestAssignTieBreaksOnLowestID(t *testing.T) {
	// Identical centroids, list ordered by id ascending: the first wins.
	c1 := &types.SemanticCluster{ID: "a-cluster", UserID: "u1", Centroid: pgvector.NewVector([]float32{1, 0, 0})}
	c2 := &types.SemanticCluster{ID: "b-cluster", UserID: "u1", Centroid: pgvector.NewVector([]float32{1, 0, 0})}
	repo := &stubClusterRepo{clusters: []*types.SemanticCluster{c1, c2}}
	svc := NewService(repo, 0.75)

	assignment, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	require.NoError(t, err)

	assert.Equal(t, "a-cluster", assignment.ClusterID)
}

func TestAssignSimilarityEqualToThresholdOpensNewCluster(t *testing.T) {
	// The join condition is strictly above threshold.
	existing := &types.SemanticCluster{ID: "c1", UserID: "u1", Centroid: pgvector.NewVector([]float32{1, 0, 0})}
	repo := &stubClusterRepo{clusters: []*types.SemanticCluster{existing}}
	svc := NewService(repo, 1.0)

	assignment, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	require.NoError(t, err)

	assert.True(t, assignment.Created)
	assert.Zero(t, repo.attachCalls)
	assert.NotEqual(t, "c1", assignment.ClusterID)
}

func TestAssignSameTopicSequence(t *testing.T) {
	// Two similar facts: whichever arrives first opens a cluster, the other
	// joins it once the repo reflects the new cluster.
	a := newFact("f1", []float32{1, 0.05, 0})
	b := newFact("f2", []float32{1, 0, 0.05})

	for name, order := range map[string][]*types.MemoryFact{
		"forward":  {a, b},
		"reversed": {b, a},
	} {
		t.Run(name, func(t *testing.T) {
			repo := &stubClusterRepo{}
			svc := NewService(repo, 0.75)

			first, err := svc.Assign(context.Background(), order[0])
			require.NoError(t, err)
			require.True(t, first.Created)

			repo.clusters = []*types.SemanticCluster{repo.created}

			second, err := svc.Assign(context.Background(), order[1])
			require.NoError(t, err)

			assert.False(t, second.Created)
			assert.Equal(t, first.ClusterID, second.ClusterID)
			assert.Equal(t, 1, repo.attachCalls)
		})
	}
}

func TestAssignPropagatesListError(t *testing.T) {
	repo := &stubClusterRepo{listErr: errors.New("db down")}
	svc := NewService(repo, 0.75)

	_, err := svc.Assign(context.Background(), newFact("f1", []float32{1, 0, 0}))
	assert.Error(t, err)
}
