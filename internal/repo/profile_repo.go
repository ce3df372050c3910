// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a profile is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateProfile inserts a new Profile row. The primary key is the auth
// collaborator's user id, so no id generation happens here. CreatedAt is
// set to UTC. On failure, it returns a DB error.
func CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetProfile fetches a profile by user id. If the record does not exist it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile applies the given column updates to the profile owned by
// userID. The role column is never part of updates; the service layer strips
// it before calling. If no rows are affected (profile missing), it returns
// ErrNotFound.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProviders returns all provider-role profiles ordered by rating
// descending, then display name for a stable tie-break. It returns an empty
// slice when there are no providers.
func ListProviders(ctx context.Context, db *gorm.DB) ([]domain.Profile, error) {
	var out []domain.Profile
	err := db.WithContext(ctx).
		Where("role = ?", domain.RoleProvider).
		Order("rating desc, display_name asc").
		Find(&out).Error
	return out, err
}
