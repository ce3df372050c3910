// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Application model (a provider's interest in an open job post).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// CreateApplication inserts a new Application row for bookingID on behalf of
// providerID. No uniqueness is enforced per (booking, provider); duplicate
// applications are permitted.
func CreateApplication(ctx context.Context, db *gorm.DB, bookingID, providerID, message string) (*domain.Application, error) {
	a := &domain.Application{
		ID:         uuid.NewString(),
		BookingID:  bookingID,
		ProviderID: providerID,
		Message:    message,
		Status:     domain.ApplicationStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetApplication fetches an application by id, or ErrNotFound.
func GetApplication(ctx context.Context, db *gorm.DB, id string) (*domain.Application, error) {
	var a domain.Application
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApplicationsForBooking returns all applications targeting a booking,
// oldest first so the poster reviews them in arrival order.
func ListApplicationsForBooking(ctx context.Context, db *gorm.DB, bookingID string) ([]domain.Application, error) {
	var out []domain.Application
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// ListApplicationsByProvider returns a provider's applications, most recent
// first.
func ListApplicationsByProvider(ctx context.Context, db *gorm.DB, providerID string) ([]domain.Application, error) {
	var out []domain.Application
	err := db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateApplicationStatus sets the status of one application. Returns
// ErrNotFound when the application does not exist.
func UpdateApplicationStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RejectCompetingApplications marks every still-pending application on a
// booking as rejected except the accepted one. It is a bulk update; zero
// affected rows is a valid outcome (the accepted application may have been
// the only one).
func RejectCompetingApplications(ctx context.Context, db *gorm.DB, bookingID, acceptedID string) error {
	return db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("booking_id = ? AND id <> ? AND status = ?", bookingID, acceptedID, domain.ApplicationStatusPending).
		Update("status", domain.ApplicationStatusRejected).Error
}
