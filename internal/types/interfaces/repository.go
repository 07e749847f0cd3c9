package interfaces

import (
	"context"
	"time"

	"github.com/agentmemz/agentmemz/internal/types"
)

// ConversationRepository persists conversation rows.
type ConversationRepository interface {
	Create(ctx context.Context, conv *types.Conversation) error
	GetByID(ctx context.Context, id string) (*types.Conversation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*types.Conversation, error)

	// Close sets ended_at once; closing an already-closed conversation is a
	// no-op.
	Close(ctx context.Context, id string, endedAt time.Time) error
}

// MessageRepository persists message rows. Messages are immutable after
// creation except for embedding attachment.
type MessageRepository interface {
	Create(ctx context.Context, msg *types.Message) error
	GetByID(ctx context.Context, id string) (*types.Message, error)
	AttachEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListMissingEmbeddings returns up to limit messages whose embedding is
	// still null, oldest first, for the background backfill pass.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*types.Message, error)
}

// FactRepository persists memory facts. Facts are never deleted; the only
// mutations are access tracking and validity closure.
type FactRepository interface {
	Create(ctx context.Context, fact *types.MemoryFact) error
	GetByID(ctx context.Context, id string) (*types.MemoryFact, error)

	// GetByIDs returns the owner's facts for the given ids, in no particular
	// order. Ids belonging to other owners are silently dropped.
	GetByIDs(ctx context.Context, ownerID string, ids []string) ([]*types.MemoryFact, error)

	// TouchAccess atomically increments access_count and sets last_accessed
	// for each id. Safe under concurrent recall calls.
	TouchAccess(ctx context.Context, ids []string, at time.Time) error

	// Supersede closes the validity window as of at. Returns
	// errs.ErrNotFound when the fact does not exist and a conflict error
	// when the window is already closed.
	Supersede(ctx context.Context, id string, at time.Time) error

	Summary(ctx context.Context, ownerID string) (*types.MemorySummary, error)
}

// ClusterRepository persists semantic clusters and memberships. Centroid
// updates run inside a row-locked transaction so concurrent assignments to
// the same cluster cannot lose updates.
type ClusterRepository interface {
	// ListByUser returns the user's clusters ordered by id ascending for
	// deterministic tie-breaking.
	ListByUser(ctx context.Context, ownerID string) ([]*types.SemanticCluster, error)

	GetByID(ctx context.Context, id string) (*types.SemanticCluster, error)

	// Create inserts a new cluster together with its first membership.
	Create(ctx context.Context, cluster *types.SemanticCluster, membership *types.ClusterMembership) error

	// AttachMember locks the cluster row, folds the embedding into the
	// centroid as an incremental mean, increments member_count, and inserts
	// the membership, all in one transaction.
	AttachMember(ctx context.Context, clusterID string, embedding []float32, membership *types.ClusterMembership) error

	// ListMembers returns the fact ids belonging to a cluster.
	ListMembers(ctx context.Context, clusterID string) ([]*types.ClusterMembership, error)
}
