package milvus

import (
	"sync"

	client "github.com/milvus-io/milvus/client/v2/milvusclient"
)

type vectorIndex struct {
	client         *client.Client
	collectionName string
	dimension      int
	timeout        timeoutConfig

	// Guards one-time collection creation.
	initOnce sync.Once
	initErr  error
}

type timeoutConfig struct {
	perCall int64 // milliseconds
}

// factVector is the stored representation of a fact embedding.
type factVector struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Embedding  []float32 `json:"embedding"`
	CreatedAt  int64     `json:"created_at"`  // unix nanos, for tie-breaking
	ValidUntil int64     `json:"valid_until"` // unix nanos, 0 = open-ended
}

type factVectorWithScore struct {
	factVector
	Score float64
}
