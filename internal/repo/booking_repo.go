// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model, including the conditional status transitions that keep the
// payment-tracked lifecycle (pending → confirmed → completed) single-writer.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// CreateBooking inserts a new Booking row. The id is a randomly generated
// UUID unless pre-set, and CreatedAt is set to UTC.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	b.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(b).Error
}

// GetBooking fetches a booking by id, or ErrNotFound.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingBySession fetches the booking attached to a checkout session id,
// or ErrNotFound.
func GetBookingBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookingsByClient returns all bookings posted or paid for by clientID,
// most recent first.
func ListBookingsByClient(ctx context.Context, db *gorm.DB, clientID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListBookingsByProvider returns all bookings assigned to providerID,
// most recent first.
func ListBookingsByProvider(ctx context.Context, db *gorm.DB, providerID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListOpenJobs returns pending bookings with no provider assigned and no
// checkout session attached, i.e. the open job posts providers can apply to.
func ListOpenJobs(ctx context.Context, db *gorm.DB) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("status = ? AND provider_id IS NULL AND stripe_session_id IS NULL", domain.BookingStatusPending).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ConfirmBookingBySession performs the single atomic pending → confirmed
// transition for the booking matched by sessionID.
//
// Return values:
//   - (true, nil): this call performed the transition; confirmation side
//     effects (emails, notifications) belong to this caller only.
//   - (false, nil): the booking exists but was already confirmed (or
//     completed); a replayed verification must not redo side effects.
//   - (false, ErrNotFound): no booking carries this session id.
func ConfirmBookingBySession(ctx context.Context, db *gorm.DB, sessionID string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, domain.BookingStatusPending).
		Update("status", domain.BookingStatusConfirmed)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Nothing transitioned: distinguish "unknown session" from a replay.
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("stripe_session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// TransitionBookingStatus conditionally moves a booking owned by clientID
// from one status to another. Returns ErrNotFound when no row matched,
// which covers missing bookings, wrong owners, and wrong source status alike.
func TransitionBookingStatus(ctx context.Context, db *gorm.DB, id, clientID, from, to string) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND client_id = ? AND status = ?", id, clientID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AssignProvider sets provider_id on an unassigned booking. Used inside the
// accept-application transaction; the conditional WHERE keeps two concurrent
// accepts from both succeeding. Returns ErrNotFound when nothing matched.
func AssignProvider(ctx context.Context, db *gorm.DB, bookingID, providerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND provider_id IS NULL AND status = ?", bookingID, domain.BookingStatusPending).
		Update("provider_id", providerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
