package fact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
)

type stubRepo struct {
	fact         *types.MemoryFact
	supersededAt *time.Time
	supersedeErr error
}

func (s *stubRepo) Create(ctx context.Context, fact *types.MemoryFact) error { return nil }

func (s *stubRepo) GetByID(ctx context.Context, id string) (*types.MemoryFact, error) {
	if s.fact == nil || s.fact.ID != id {
		return nil, errs.NotFound("fact", id)
	}
	return s.fact, nil
}

func (s *stubRepo) GetByIDs(ctx context.Context, ownerID string, ids []string) ([]*types.MemoryFact, error) {
	return nil, nil
}

func (s *stubRepo) TouchAccess(ctx context.Context, ids []string, at time.Time) error { return nil }

func (s *stubRepo) Supersede(ctx context.Context, id string, at time.Time) error {
	if s.supersedeErr != nil {
		return s.supersedeErr
	}
	s.supersededAt = &at
	return nil
}

func (s *stubRepo) Summary(ctx context.Context, ownerID string) (*types.MemorySummary, error) {
	return &types.MemorySummary{UserID: ownerID, TotalFacts: 3}, nil
}

type stubIndex struct {
	invalidated []string
	err         error
}

func (s *stubIndex) Upsert(ctx context.Context, ownerID, recordID string, vector []float32) error {
	return nil
}

func (s *stubIndex) TopK(ctx context.Context, ownerID string, vector []float32, k int, minScore float64, validOnly bool) ([]types.VectorMatch, error) {
	return nil, nil
}

func (s *stubIndex) Invalidate(ctx context.Context, ownerID, recordID string, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.invalidated = append(s.invalidated, recordID)
	return nil
}

func TestSupersedeClosesWindowAndInvalidatesIndex(t *testing.T) {
	repo := &stubRepo{fact: &types.MemoryFact{ID: "f1", UserID: "u1"}}
	index := &stubIndex{}
	svc := NewService(repo, index)

	at := time.Now().UTC()
	require.NoError(t, svc.Supersede(context.Background(), "f1", at))

	require.NotNil(t, repo.supersededAt)
	assert.Equal(t, at, *repo.supersededAt)
	assert.Equal(t, []string{"f1"}, index.invalidated)
}

func TestSupersedeUnknownFact(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubIndex{})

	err := svc.Supersede(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSupersedeRejectsClosureBeforeValidFrom(t *testing.T) {
	validFrom := time.Now().UTC()
	repo := &stubRepo{fact: &types.MemoryFact{ID: "f1", UserID: "u1", ValidFrom: validFrom}}
	index := &stubIndex{}
	svc := NewService(repo, index)

	err := svc.Supersede(context.Background(), "f1", validFrom.Add(-24*time.Hour))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Nil(t, repo.supersededAt, "ill-formed window must not reach storage")
	assert.Empty(t, index.invalidated)
}

func TestSupersedeRejectsClosureEqualToValidFrom(t *testing.T) {
	validFrom := time.Now().UTC()
	repo := &stubRepo{fact: &types.MemoryFact{ID: "f1", UserID: "u1", ValidFrom: validFrom}}
	svc := NewService(repo, &stubIndex{})

	err := svc.Supersede(context.Background(), "f1", validFrom)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Nil(t, repo.supersededAt)
}

func TestSupersedeIndexFailureIsNotFatal(t *testing.T) {
	repo := &stubRepo{fact: &types.MemoryFact{ID: "f1", UserID: "u1"}}
	index := &stubIndex{err: errs.Index("invalidate", errors.New("milvus down"))}
	svc := NewService(repo, index)

	assert.NoError(t, svc.Supersede(context.Background(), "f1", time.Now()))
}

func TestSupersedeAlreadyClosed(t *testing.T) {
	repo := &stubRepo{
		fact:         &types.MemoryFact{ID: "f1", UserID: "u1"},
		supersedeErr: errors.New("fact f1 already superseded"),
	}
	svc := NewService(repo, &stubIndex{})

	err := svc.Supersede(context.Background(), "f1", time.Now())
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	svc := NewService(&stubRepo{}, &stubIndex{})

	summary, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", summary.UserID)
	assert.Equal(t, int64(3), summary.TotalFacts)
}
