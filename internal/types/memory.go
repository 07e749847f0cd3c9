package types

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Conversation is a session-scoped container for messages. Immutable after
// creation except for EndedAt, which is set on session close.
type Conversation struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string     `json:"user_id" gorm:"index;not null"`
	SessionID string     `json:"session_id" gorm:"uniqueIndex;not null"`
	Metadata  string     `json:"metadata,omitempty" gorm:"type:jsonb"`
	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Message is a single conversational turn. Never mutated after creation
// except to attach the embedding once it is computed.
type Message struct {
	ID             string           `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationID string           `json:"conversation_id" gorm:"index;not null"`
	Role           Role             `json:"role" gorm:"not null"`
	Content        string           `json:"content" gorm:"type:text;not null"`
	AudioRef       string           `json:"audio_ref,omitempty"`
	Embedding      *pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	CreatedAt      time.Time        `json:"created_at" gorm:"index;not null"`
}

// MemoryFact is an atomic unit of extracted knowledge about a user.
// Facts are never deleted; supersession closes the validity window.
type MemoryFact struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string          `json:"user_id" gorm:"index;not null"`
	FactType        string          `json:"fact_type" gorm:"not null"`
	Content         string          `json:"content" gorm:"type:text;not null"`
	Embedding       pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	Confidence      float64         `json:"confidence" gorm:"not null;default:1"`
	SourceMessageID string          `json:"source_message_id"`
	ValidFrom       time.Time       `json:"valid_from" gorm:"not null"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	AccessCount     int64           `json:"access_count" gorm:"not null;default:0"`
	LastAccessed    *time.Time      `json:"last_accessed,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index;not null"`
}

// CurrentlyValid reports whether the fact's validity window is open at now.
func (f *MemoryFact) CurrentlyValid(now time.Time) bool {
	return f.ValidUntil == nil || f.ValidUntil.After(now)
}

// SemanticCluster is an approximate topic grouping of facts. The centroid
// is the running mean of member embeddings, maintained incrementally.
type SemanticCluster struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string          `json:"user_id" gorm:"index;not null"`
	Centroid    pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	Keywords    string          `json:"keywords" gorm:"type:text"`
	MemberCount int64           `json:"member_count" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

// ClusterMembership links a fact to a cluster. Unique per (fact, cluster)
// pair; memberships are append-only.
type ClusterMembership struct {
	FactID     string    `json:"fact_id" gorm:"primaryKey;type:uuid"`
	ClusterID  string    `json:"cluster_id" gorm:"primaryKey;type:uuid"`
	Similarity float64   `json:"similarity" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

// ClusterAssignment is the result of assigning a fact to a cluster.
type ClusterAssignment struct {
	FactID     string  `json:"fact_id"`
	ClusterID  string  `json:"cluster_id"`
	Similarity float64 `json:"similarity"`
	Created    bool    `json:"created"` // true when a new cluster was opened
}

// FactCandidate is a fact proposed by the extractor before persistence.
type FactCandidate struct {
	FactType   string  `json:"fact_type"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// ScoredFact is a recall result: a fact plus its ranking signals.
type ScoredFact struct {
	Fact             MemoryFact `json:"fact"`
	Similarity       float64    `json:"similarity"`
	GraphRelatedness float64    `json:"graph_relatedness"`
	Score            float64    `json:"score"`
}

// VectorMatch is a raw hit from the vector index.
type VectorMatch struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// MemorySummary aggregates a user's memory statistics.
type MemorySummary struct {
	UserID        string     `json:"user_id"`
	TotalFacts    int64      `json:"total_facts"`
	FactTypes     int64      `json:"fact_types"`
	AvgConfidence float64    `json:"avg_confidence"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
}

// Graph node labels used by the enrichment step.
const (
	NodeFact       = "Fact"
	NodePerson     = "Person"
	NodeTopic      = "Topic"
	NodeConcept    = "Concept"
	NodeLocation   = "Location"
	NodePreference = "Preference"
	NodeEpisode    = "Episode"
)

// Graph edge types.
const (
	EdgeRelatesTo   = "RELATES_TO"
	EdgeMentions    = "MENTIONS"
	EdgeFollowsFrom = "FOLLOWS_FROM"
	EdgeContradicts = "CONTRADICTS"
	EdgeSupports    = "SUPPORTS"
	EdgePartOf      = "PART_OF"
)

// GraphEntity is an entity extracted alongside a fact, merged into the
// graph as a typed node.
type GraphEntity struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// TableName overrides for gorm.
func (Conversation) TableName() string      { return "conversations" }
func (Message) TableName() string           { return "messages" }
func (MemoryFact) TableName() string        { return "memory_facts" }
func (SemanticCluster) TableName() string   { return "semantic_clusters" }
func (ClusterMembership) TableName() string { return "cluster_memberships" }
