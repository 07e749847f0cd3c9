// Package graph provides the fallback graph store used when no graph
// database is configured.
package graph

import (
	"context"
	"errors"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

var errDisabled = errors.New("graph store disabled")

type disabledStore struct{}

// NewDisabledStore returns a graph store whose every operation reports the
// graph subsystem unavailable. Ingestion treats graph writes as
// best-effort and recall reweights scores, so a deployment without Neo4j
// still serves vector-only memory.
func NewDisabledStore() interfaces.GraphStore {
	return disabledStore{}
}

func (disabledStore) MergeNode(ctx context.Context, ownerID, nodeType, key string, props map[string]any) error {
	return errs.Graph("merge node", errDisabled)
}

func (disabledStore) MergeEdge(ctx context.Context, ownerID, edgeType, fromKey, toKey string, props map[string]any) error {
	return errs.Graph("merge edge", errDisabled)
}

func (disabledStore) Neighborhood(ctx context.Context, ownerID string, startKeys []string, maxDepth int) (map[string][]string, error) {
	return nil, errs.Graph("neighborhood", errDisabled)
}
