// Package ingest implements the memory ingestion pipeline: persist the
// turn, attach an embedding, extract facts, assign clusters, and enrich
// the graph. Only the initial message persist is fatal; every later step
// degrades independently.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type service struct {
	conversations interfaces.ConversationRepository
	messages      interfaces.MessageRepository
	facts         interfaces.FactRepository
	clusters      interfaces.ClusterService
	sessions      interfaces.SessionService
	embedder      interfaces.EmbeddingClient
	index         interfaces.VectorIndex
	graph         interfaces.GraphStore
	extractor     interfaces.FactExtractor
	backfillBatch int
}

// NewService creates the ingestion pipeline.
func NewService(
	conversations interfaces.ConversationRepository,
	messages interfaces.MessageRepository,
	facts interfaces.FactRepository,
	clusters interfaces.ClusterService,
	sessions interfaces.SessionService,
	embedder interfaces.EmbeddingClient,
	index interfaces.VectorIndex,
	graph interfaces.GraphStore,
	extractor interfaces.FactExtractor,
	backfillBatch int,
) interfaces.IngestService {
	return &service{
		conversations: conversations,
		messages:      messages,
		facts:         facts,
		clusters:      clusters,
		sessions:      sessions,
		embedder:      embedder,
		index:         index,
		graph:         graph,
		extractor:     extractor,
		backfillBatch: backfillBatch,
	}
}

func (s *service) CreateConversation(ctx context.Context, userID, sessionID string, metadata map[string]any) (*types.Conversation, error) {
	meta := "{}"
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode conversation metadata: %w", err)
		}
		meta = string(data)
	}

	conv := &types.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Metadata:  meta,
		StartedAt: time.Now().UTC(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	// Session context is advisory; cache failure never fails creation.
	err := s.sessions.UpdateContext(ctx, sessionID, map[string]string{
		"user_id":         userID,
		"conversation_id": conv.ID,
		"started_at":      conv.StartedAt.Format(time.RFC3339),
	})
	if err != nil {
		logger.Warnf(ctx, "failed to cache session context for %s: %v", sessionID, err)
	}

	return conv, nil
}

func (s *service) CloseConversation(ctx context.Context, conversationID string) error {
	return s.conversations.Close(ctx, conversationID, time.Now().UTC())
}

func (s *service) Ingest(ctx context.Context, conversationID string, role types.Role, content, audioRef string) (*types.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		AudioRef:       audioRef,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	// Embedding attachment degrades to a null embedding; the backfill pass
	// retries later.
	embedding, embErr := s.embedder.Embed(ctx, content)
	if embErr != nil {
		logger.Warnf(ctx, "embedding unavailable for message %s, persisted without one: %v", msg.ID, embErr)
	} else {
		if err := s.messages.AttachEmbedding(ctx, msg.ID, embedding); err != nil {
			logger.Errorf(ctx, "failed to attach embedding to message %s: %v", msg.ID, err)
		} else {
			vec := pgvector.NewVector(embedding)
			msg.Embedding = &vec
		}
	}

	facts, entities := s.extractFacts(ctx, conv, msg)
	s.enrichGraph(ctx, conv, facts, entities)

	return msg, nil
}

// extractFacts runs fact extraction and persists each candidate with its
// own embedding. Extractor failure is treated as zero candidates.
func (s *service) extractFacts(ctx context.Context, conv *types.Conversation, msg *types.Message) ([]*types.MemoryFact, []types.GraphEntity) {
	candidates, entities, err := s.extractor.Extract(ctx, msg.Content)
	if err != nil {
		logger.Warnf(ctx, "fact extraction failed for message %s, treating as zero candidates: %v", msg.ID, err)
		return nil, nil
	}

	persisted := make([]*types.MemoryFact, 0, len(candidates))
	for _, candidate := range candidates {
		factEmbedding, err := s.embedder.Embed(ctx, candidate.Content)
		if err != nil {
			logger.Warnf(ctx, "embedding unavailable for fact candidate %q, skipped: %v", candidate.Content, err)
			continue
		}

		now := time.Now().UTC()
		fact := &types.MemoryFact{
			ID:              uuid.New().String(),
			UserID:          conv.UserID,
			FactType:        candidate.FactType,
			Content:         candidate.Content,
			Embedding:       pgvector.NewVector(factEmbedding),
			Confidence:      candidate.Confidence,
			SourceMessageID: msg.ID,
			ValidFrom:       now,
			CreatedAt:       now,
		}
		if err := s.facts.Create(ctx, fact); err != nil {
			logger.Errorf(ctx, "failed to persist fact from message %s: %v", msg.ID, err)
			continue
		}
		persisted = append(persisted, fact)

		if err := s.index.Upsert(ctx, conv.UserID, fact.ID, factEmbedding); err != nil {
			logger.Warnf(ctx, "vector index upsert failed for fact %s: %v", fact.ID, err)
		}

		if _, err := s.clusters.Assign(ctx, fact); err != nil {
			logger.Warnf(ctx, "cluster assignment failed for fact %s: %v", fact.ID, err)
		}
	}

	return persisted, entities
}

// enrichGraph merges nodes for the conversation, facts, and entities, and
// edges between them. Graph enrichment is best effort: failures are logged
// as degradation, never propagated.
func (s *service) enrichGraph(ctx context.Context, conv *types.Conversation, facts []*types.MemoryFact, entities []types.GraphEntity) {
	if len(facts) == 0 && len(entities) == 0 {
		return
	}

	owner := conv.UserID
	if err := s.graph.MergeNode(ctx, owner, types.NodeEpisode, conv.ID, map[string]any{
		"session_id": conv.SessionID,
	}); err != nil {
		logger.Warnf(ctx, "graph degraded, skipping enrichment for conversation %s: %v", conv.ID, err)
		return
	}

	for _, fact := range facts {
		err := s.graph.MergeNode(ctx, owner, types.NodeFact, fact.ID, map[string]any{
			"fact_type": fact.FactType,
			"content":   fact.Content,
		})
		if err != nil {
			logger.Warnf(ctx, "graph merge failed for fact %s: %v", fact.ID, err)
			continue
		}
		if err := s.graph.MergeEdge(ctx, owner, types.EdgeMentions, conv.ID, fact.ID, nil); err != nil {
			logger.Warnf(ctx, "graph edge failed for fact %s: %v", fact.ID, err)
		}
	}

	for _, entity := range entities {
		key := entity.Type + ":" + entity.Name
		if err := s.graph.MergeNode(ctx, owner, entity.Type, key, map[string]any{"name": entity.Name}); err != nil {
			logger.Warnf(ctx, "graph merge failed for entity %s: %v", key, err)
			continue
		}
		if err := s.graph.MergeEdge(ctx, owner, types.EdgeMentions, conv.ID, key, nil); err != nil {
			logger.Warnf(ctx, "graph edge failed for entity %s: %v", key, err)
		}
		for _, fact := range facts {
			if err := s.graph.MergeEdge(ctx, owner, types.EdgeRelatesTo, fact.ID, key, nil); err != nil {
				logger.Warnf(ctx, "graph edge failed for fact %s -> %s: %v", fact.ID, key, err)
			}
		}
	}
}

func (s *service) BackfillEmbeddings(ctx context.Context) (int, error) {
	msgs, err := s.messages.ListMissingEmbeddings(ctx, s.backfillBatch)
	if err != nil {
		return 0, err
	}

	attached := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return attached, ctx.Err()
		}
		embedding, err := s.embedder.Embed(ctx, msg.Content)
		if err != nil {
			if errors.Is(err, errs.ErrEmbeddingUnavailable) {
				// Service still down; retry on the next pass.
				logger.Warnf(ctx, "embedding backfill halted, service unavailable: %v", err)
				return attached, nil
			}
			logger.Errorf(ctx, "embedding backfill failed for message %s: %v", msg.ID, err)
			continue
		}
		if err := s.messages.AttachEmbedding(ctx, msg.ID, embedding); err != nil {
			logger.Errorf(ctx, "failed to attach backfilled embedding to %s: %v", msg.ID, err)
			continue
		}
		attached++
	}

	if attached > 0 {
		logger.Infof(ctx, "embedding backfill attached %d embeddings", attached)
	}
	return attached, nil
}
