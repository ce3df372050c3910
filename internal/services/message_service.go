// Package services – MessageService
//
// This file implements MessageService, which owns direct messaging between
// two users. Conversations are not stored; a conversation is whatever
// messages exist between an ordered-insensitive pair of user ids.
//
// Observability: Send is OpenTelemetry-instrumented; spans include both
// participant identifiers.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService coordinates message persistence and conversation reads.
type MessageService struct {
	DB *gorm.DB

	// Optional guard
	MaxBodyRunes int
}

// ConversationSummary is one row of a user's inbox: the counterpart, the most
// recent message, and how many of their messages remain unread.
type ConversationSummary struct {
	PartnerID     string          `json:"partner_id"`
	PartnerName   string          `json:"partner_name"`
	PartnerAvatar string          `json:"partner_avatar,omitempty"`
	LastMessage   *domain.Message `json:"last_message,omitempty"`
	UnreadCount   int64           `json:"unread_count"`
}

// SendInput carries a message submission.
type SendInput struct {
	RecipientID string
	Body        string
	Type        string
	FileURL     string
	FileSize    int64
}

// Send validates and persists a message from senderID. The recipient must
// have a profile; the body may be empty only for file and image messages
// that carry an attachment URL.
func (s *MessageService) Send(ctx context.Context, senderID string, in SendInput) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", senderID),
			attribute.String("recipient.id", in.RecipientID),
		),
	)
	defer span.End()

	if senderID == in.RecipientID {
		return nil, ErrSelfMessage
	}

	typ := in.Type
	switch typ {
	case "":
		typ = domain.MessageTypeText
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeFile:
	default:
		typ = domain.MessageTypeText
	}

	body := strings.TrimSpace(in.Body)
	if body == "" && (typ == domain.MessageTypeText || strings.TrimSpace(in.FileURL) == "") {
		return nil, ErrEmptyMessage
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	if _, err := repo.GetProfile(ctx, s.DB, in.RecipientID); err != nil {
		return nil, ErrProfileNotFound
	}

	m := &domain.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		Body:        body,
		Type:        typ,
		FileURL:     strings.TrimSpace(in.FileURL),
		FileSize:    in.FileSize,
	}
	if err := repo.CreateMessage(ctx, s.DB, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListConversation returns one page of the conversation between userID and
// otherID in chronological order, plus the total message count.
func (s *MessageService) ListConversation(ctx context.Context, userID, otherID string, page, pageSize int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	total, err := repo.CountConversation(ctx, s.DB, userID, otherID)
	if err != nil {
		return nil, 0, err
	}
	msgs, err := repo.ListConversationPage(ctx, s.DB, userID, otherID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Conversations builds the caller's inbox: one summary per conversation
// partner, most recently active first.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	partners, err := repo.ListConversationPartners(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(partners))
	for _, pid := range partners {
		sum := ConversationSummary{PartnerID: pid, PartnerName: pid}
		if p, err := repo.GetProfile(ctx, s.DB, pid); err == nil {
			sum.PartnerName = p.DisplayName
			sum.PartnerAvatar = p.AvatarURL
		}
		if last, err := repo.LastMessageBetween(ctx, s.DB, userID, pid); err == nil {
			sum.LastMessage = last
		}
		if n, err := repo.CountUnreadFrom(ctx, s.DB, userID, pid); err == nil {
			sum.UnreadCount = n
		}
		out = append(out, sum)
	}
	return out, nil
}

// MarkRead marks every message from otherID to userID as read and returns
// how many rows changed.
func (s *MessageService) MarkRead(ctx context.Context, userID, otherID string) (int64, error) {
	return repo.MarkConversationRead(ctx, s.DB, userID, otherID)
}
