// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Service
// (listing) model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// CreateService inserts a new Service row owned by the given provider.
// The id is a randomly generated UUID unless pre-set, and CreatedAt is UTC.
func CreateService(ctx context.Context, db *gorm.DB, s *domain.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(s).Error
}

// GetService fetches a service by id. If the record does not exist it
// returns ErrNotFound.
func GetService(ctx context.Context, db *gorm.DB, id string) (*domain.Service, error) {
	var s domain.Service
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListServicesByProvider returns all services owned by providerID, including
// inactive ones, ordered by creation time descending. Owners manage their
// full catalogue; discovery visibility is filtered elsewhere.
func ListServicesByProvider(ctx context.Context, db *gorm.DB, providerID string) ([]domain.Service, error) {
	var out []domain.Service
	err := db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListActiveServices returns every active service, ordered by creation time
// descending. This is the bounded input set the discovery filter scans.
func ListActiveServices(ctx context.Context, db *gorm.DB) ([]domain.Service, error) {
	var out []domain.Service
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateService applies column updates to a service identified by id and
// owned by providerID. If no rows are affected (service missing or not
// owned), it returns ErrNotFound.
func UpdateService(ctx context.Context, db *gorm.DB, id, providerID string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Service{}).
		Where("id = ? AND provider_id = ?", id, providerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteService hard-deletes a service owned by providerID. There is no
// tombstone; the row is gone. Returns ErrNotFound when nothing matched.
func DeleteService(ctx context.Context, db *gorm.DB, id, providerID string) error {
	res := db.WithContext(ctx).
		Unscoped().
		Where("id = ? AND provider_id = ?", id, providerID).
		Delete(&domain.Service{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
