package postgres

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a postgres-backed message repository.
func NewMessageRepository(db *gorm.DB) interfaces.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *types.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return errs.Storage("create message", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*types.Message, error) {
	var msg types.Message
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("message", id)
	}
	if err != nil {
		return nil, errs.Storage("get message", err)
	}
	return &msg, nil
}

func (r *messageRepository) AttachEmbedding(ctx context.Context, id string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	res := r.db.WithContext(ctx).Model(&types.Message{}).
		Where("id = ? AND embedding IS NULL", id).
		Update("embedding", vec)
	if res.Error != nil {
		return errs.Storage("attach embedding", res.Error)
	}
	return nil
}

func (r *messageRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*types.Message, error) {
	var msgs []*types.Message
	err := r.db.WithContext(ctx).
		Where("embedding IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, errs.Storage("list messages missing embeddings", err)
	}
	return msgs, nil
}
