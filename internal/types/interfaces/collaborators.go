package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/agentmemz/agentmemz/internal/types"
)

// EmbeddingClient maps text to a fixed-dimension vector. Determinism for
// identical input is not guaranteed. Fails with errs.ErrEmbeddingUnavailable
// on timeout or upstream error.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores fact embeddings and answers approximate
// cosine-similarity top-k queries. Every call is owner-scoped; the index
// never returns another user's records. Fails with errs.ErrIndexUnavailable.
type VectorIndex interface {
	Upsert(ctx context.Context, ownerID, recordID string, vector []float32) error

	// TopK returns up to k matches with similarity >= minScore, ordered by
	// descending similarity with earlier-created records first on ties.
	// validOnly restricts results to facts whose validity window is open.
	TopK(ctx context.Context, ownerID string, vector []float32, k int, minScore float64, validOnly bool) ([]types.VectorMatch, error)

	// Invalidate marks a record's validity window closed as of at.
	Invalidate(ctx context.Context, ownerID, recordID string, at time.Time) error
}

// GraphStore holds typed nodes and relationships. All operations are
// owner-scoped. Fails with errs.ErrGraphUnavailable; callers treat that as
// a degradation signal, never as fatal.
type GraphStore interface {
	MergeNode(ctx context.Context, ownerID, nodeType, key string, props map[string]any) error
	MergeEdge(ctx context.Context, ownerID, edgeType, fromKey, toKey string, props map[string]any) error

	// Neighborhood returns, for each start node key, the set of node keys
	// reachable within maxDepth hops.
	Neighborhood(ctx context.Context, ownerID string, startKeys []string, maxDepth int) (map[string][]string, error)
}

// Cache is a key-value store with per-key expiry. Failures are treated as
// cache misses and are never surfaced to callers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// FactExtractor turns a conversational turn into candidate facts and the
// entities they mention. Extractor failure is equivalent to zero candidates.
type FactExtractor interface {
	Extract(ctx context.Context, content string) ([]types.FactCandidate, []types.GraphEntity, error)
}

// BlobStore persists audio artifacts and hands out time-limited URLs.
type BlobStore interface {
	// Store uploads the object and returns an opaque reference.
	Store(ctx context.Context, userID, sessionID, filename string, data io.Reader, size int64, contentType string) (string, error)

	// PresignedURL resolves a reference to a time-limited download URL.
	PresignedURL(ctx context.Context, ref string) (string, error)
}
