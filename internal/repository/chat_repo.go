package repository

import (
	"context"
	"slices"
	"sync"

	"student-registry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB

	// serializes append and eviction within the process
	appendMu sync.Mutex
}

func NewChatRepo(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append stores a message and evicts the oldest entries while the log exceeds limit.
// Existing rows are locked before the insert so concurrent appends from other
// processes wait and then see this append's row.
func (r *ChatRepository) Append(ctx context.Context, msg *models.ChatMessage, limit int) error {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.ChatMessage{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		excess := min(len(ids)+1-limit, len(ids))
		if excess <= 0 {
			return nil
		}
		return tx.Delete(&models.ChatMessage{}, ids[:excess]).Error
	})
	return translate(err, "chat message")
}

// Recent returns up to limit of the newest messages in arrival order
func (r *ChatRepository) Recent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translate(err, "chat messages")
	}
	slices.Reverse(messages)
	return messages, nil
}

// Count returns the number of retained messages
func (r *ChatRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Count(&count).Error; err != nil {
		return 0, translate(err, "chat messages")
	}
	return count, nil
}
