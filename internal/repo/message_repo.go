// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model. Conversations are not stored; they are derived at read time by
// pairing a user with a counterparty id.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// CreateMessage inserts a new message row with status "sent".
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Type == "" {
		m.Type = domain.MessageTypeText
	}
	m.Status = domain.MessageStatusSent
	m.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(m).Error
}

// conversationScope narrows a query to messages exchanged between two users,
// in either direction.
func conversationScope(db *gorm.DB, userID, otherID string) *gorm.DB {
	return db.Where(
		"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		userID, otherID, otherID, userID,
	)
}

// CountConversation returns the number of messages between userID and otherID.
func CountConversation(ctx context.Context, db *gorm.DB, userID, otherID string) (int64, error) {
	var total int64
	err := conversationScope(db.WithContext(ctx).Model(&domain.Message{}), userID, otherID).
		Count(&total).Error
	return total, err
}

// ListConversationPage returns a paginated slice of the conversation between
// userID and otherID ordered deterministically (CreatedAt ASC, ID ASC).
func ListConversationPage(ctx context.Context, db *gorm.DB, userID, otherID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := conversationScope(db.WithContext(ctx), userID, otherID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListConversationPartners returns the distinct counterparty ids userID has
// exchanged messages with, most recently active first.
func ListConversationPartners(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).Raw(`
		SELECT counterparty FROM (
			SELECT CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS counterparty,
			       MAX(created_at) AS last_at
			FROM messages
			WHERE deleted_at IS NULL AND (sender_id = ? OR recipient_id = ?)
			GROUP BY counterparty
		) ORDER BY last_at DESC`, userID, userID, userID).
		Scan(&out).Error
	return out, err
}

// LastMessageBetween returns the most recent message in a conversation, or
// ErrNotFound when the two users have never exchanged messages.
func LastMessageBetween(ctx context.Context, db *gorm.DB, userID, otherID string) (*domain.Message, error) {
	var m domain.Message
	err := conversationScope(db.WithContext(ctx), userID, otherID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountUnreadFrom returns how many messages sent by otherID to userID have
// not reached the "read" status yet.
func CountUnreadFrom(ctx context.Context, db *gorm.DB, userID, otherID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND status <> ?", userID, otherID, domain.MessageStatusRead).
		Count(&total).Error
	return total, err
}

// MarkConversationRead marks every message from otherID to userID as read
// and returns how many rows changed. Zero is a valid outcome.
func MarkConversationRead(ctx context.Context, db *gorm.DB, userID, otherID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND status <> ?", userID, otherID, domain.MessageStatusRead).
		Update("status", domain.MessageStatusRead)
	return res.RowsAffected, res.Error
}
