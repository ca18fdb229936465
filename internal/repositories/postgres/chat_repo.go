package postgres

import (
	"context"

	"github.com/yoockh/yoohealth/internal/models"
	"gorm.io/gorm"
)

type ChatRepository interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	// ListByUser returns the user's messages oldest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepo(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *chatRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}

	// newest window, returned in ascending order
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
