package interfaces

import (
	"context"
	"time"

	"github.com/agentmemz/agentmemz/internal/types"
)

// IngestService is the write side of the memory backend: conversation
// lifecycle plus the message ingestion pipeline.
type IngestService interface {
	CreateConversation(ctx context.Context, userID, sessionID string, metadata map[string]any) (*types.Conversation, error)
	CloseConversation(ctx context.Context, conversationID string) error

	// Ingest persists the message, attaches an embedding when the embedding
	// service is reachable, extracts and persists facts, assigns clusters,
	// and enriches the graph best-effort. The raw message always persists
	// even when downstream enrichment degrades.
	Ingest(ctx context.Context, conversationID string, role types.Role, content, audioRef string) (*types.Message, error)

	// BackfillEmbeddings retries embedding attachment for messages that
	// were persisted without one. Returns the number attached.
	BackfillEmbeddings(ctx context.Context) (int, error)
}

// ClusterService incrementally assigns facts to semantic clusters.
type ClusterService interface {
	Assign(ctx context.Context, fact *types.MemoryFact) (*types.ClusterAssignment, error)
}

// RecallService answers memory recall queries.
type RecallService interface {
	// Recall returns the k highest-ranked currently-valid facts for the
	// user. An empty slice means no sufficiently similar memories; subsystem
	// failures surface as named errors instead.
	Recall(ctx context.Context, query, userID string, k int, threshold float64) ([]types.ScoredFact, error)
}

// FactService exposes fact maintenance operations.
type FactService interface {
	// Supersede closes a fact's validity window for manual correction.
	Supersede(ctx context.Context, factID string, at time.Time) error

	Summary(ctx context.Context, userID string) (*types.MemorySummary, error)
}

// SessionService tracks short-lived per-session context in the cache layer.
type SessionService interface {
	GetContext(ctx context.Context, sessionID string) (map[string]string, error)
	UpdateContext(ctx context.Context, sessionID string, updates map[string]string) error
}
