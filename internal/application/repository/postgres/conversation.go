package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a postgres-backed conversation repository.
func NewConversationRepository(db *gorm.DB) interfaces.ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *types.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return errs.Storage("create conversation", err)
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("conversation", id)
	}
	if err != nil {
		return nil, errs.Storage("get conversation", err)
	}
	return &conv, nil
}

func (r *conversationRepository) GetBySessionID(ctx context.Context, sessionID string) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.db.WithContext(ctx).First(&conv, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("conversation", sessionID)
	}
	if err != nil {
		return nil, errs.Storage("get conversation by session", err)
	}
	return &conv, nil
}

func (r *conversationRepository) Close(ctx context.Context, id string, endedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&types.Conversation{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", endedAt)
	if res.Error != nil {
		return errs.Storage("close conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already closed; only the former is an error.
		var count int64
		if err := r.db.WithContext(ctx).Model(&types.Conversation{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errs.Storage("close conversation", err)
		}
		if count == 0 {
			return errs.NotFound("conversation", id)
		}
	}
	return nil
}
