package fact

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type service struct {
	repo  interfaces.FactRepository
	index interfaces.VectorIndex
}

// NewService creates the fact lifecycle service.
func NewService(repo interfaces.FactRepository, index interfaces.VectorIndex) interfaces.FactService {
	return &service{repo: repo, index: index}
}

// Supersede closes a fact's validity window. The fact stays in storage and
// in the graph for historical queries but no longer participates in recall.
func (s *service) Supersede(ctx context.Context, factID string, at time.Time) error {
	fact, err := s.repo.GetByID(ctx, factID)
	if err != nil {
		return err
	}
	// Guard the validity-window invariant: valid_until must stay strictly
	// after valid_from, or the fact would never have been valid at all.
	if !at.After(fact.ValidFrom) {
		return fmt.Errorf("supersede fact %s: closure time %s is not after valid_from %s: %w",
			factID, at.Format(time.RFC3339), fact.ValidFrom.Format(time.RFC3339), errs.ErrInvalidArgument)
	}
	if err := s.repo.Supersede(ctx, factID, at); err != nil {
		return err
	}
	if err := s.index.Invalidate(ctx, fact.UserID, factID, at); err != nil {
		// The row-level validity window is authoritative; a stale index
		// entry is filtered out at query time by backends that read it.
		logger.Warnf(ctx, "failed to invalidate fact %s in vector index: %v", factID, err)
	}
	logger.Infof(ctx, "superseded fact %s for user %s", factID, fact.UserID)
	return nil
}

func (s *service) Summary(ctx context.Context, userID string) (*types.MemorySummary, error) {
	return s.repo.Summary(ctx, userID)
}
