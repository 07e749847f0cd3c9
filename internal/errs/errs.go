// Package errs defines the error taxonomy shared by the ingestion and
// retrieval pipelines. Subsystem failures are classified into sentinel
// kinds so callers can decide between surfacing, degrading, and skipping.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap with Storage/Embedding/... helpers so callers can
// test with errors.Is while still seeing operation context in the message.
var (
	// ErrStorage marks a persistent-store failure. Fatal to the call.
	ErrStorage = errors.New("storage error")

	// ErrEmbeddingUnavailable marks an embedding-service failure.
	// Recoverable during ingestion (message persists without embedding),
	// fatal during recall.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable marks a vector-index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrRetrievalUnavailable marks a recall call that failed because a
	// required subsystem was down. Distinct from an empty result.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGraphUnavailable marks a graph-store failure. Never fatal:
	// graph enrichment degrades, the call proceeds.
	ErrGraphUnavailable = errors.New("graph store unavailable")

	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument marks a request the caller can correct.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Storage wraps err as a storage error with operation context.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Embedding wraps err as an embedding-unavailable error.
func Embedding(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrEmbeddingUnavailable, err)
}

// Index wraps err as a vector-index-unavailable error.
func Index(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIndexUnavailable, err)
}

// Retrieval wraps err as a retrieval-unavailable error.
func Retrieval(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRetrievalUnavailable, err)
}

// Graph wraps err as a graph-unavailable error.
func Graph(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrGraphUnavailable, err)
}

// NotFound wraps a missing-row condition with the owning id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
