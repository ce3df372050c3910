// Package services – NotificationService
//
// Thin read/acknowledge layer over the notifications other services write.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
)

// NotificationService exposes a user's in-app notifications.
type NotificationService struct {
	DB *gorm.DB
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return repo.ListNotifications(ctx, s.DB, userID)
}

// UnreadCount returns how many notifications the caller has not read yet.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return repo.CountUnreadNotifications(ctx, s.DB, userID)
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := repo.MarkNotificationRead(ctx, s.DB, id, userID); err != nil {
		return ErrNotificationNotFound
	}
	return nil
}
