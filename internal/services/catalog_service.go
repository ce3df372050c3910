// Package services – CatalogService
//
// This file implements CatalogService, which owns provider service listings:
// creation, updates, activation state, and the read paths discovery builds on.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
)

// CatalogService coordinates service-listing persistence and validation.
type CatalogService struct {
	DB *gorm.DB
}

// ListingInput carries the fields a provider submits for a listing.
type ListingInput struct {
	Title           string
	Description     string
	Category        string
	Rate            float64
	RateType        string
	DurationMinutes int
}

func (in *ListingInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrMissingCategory
	}
	if in.Rate <= 0 {
		return ErrInvalidRate
	}
	switch in.RateType {
	case domain.RateTypeHourly, domain.RateTypeFixed, domain.RateTypeDaily:
	default:
		return ErrInvalidRateType
	}
	if in.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Create validates the input, checks that the caller is a provider, and
// persists a new active listing.
func (s *CatalogService) Create(ctx context.Context, providerID string, in ListingInput) (*domain.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := repo.GetProfile(ctx, s.DB, providerID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if p.Role != domain.RoleProvider {
		return nil, ErrNotProvider
	}

	svc := &domain.Service{
		ProviderID:      providerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Category:        strings.TrimSpace(in.Category),
		Rate:            in.Rate,
		RateType:        in.RateType,
		DurationMinutes: in.DurationMinutes,
		IsActive:        true,
	}
	if err := repo.CreateService(ctx, s.DB, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Get returns a single listing by id.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := repo.GetService(ctx, s.DB, id)
	if err != nil {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

// Update applies the provided fields to a listing owned by providerID.
// Ownership is enforced at the storage layer; a mismatch surfaces as
// ErrServiceNotFound so callers cannot probe for foreign listings.
func (s *CatalogService) Update(ctx context.Context, providerID, id string, updates map[string]any) (*domain.Service, error) {
	allowed := map[string]any{}
	for k, v := range updates {
		switch k {
		case "title", "description", "category":
			str, ok := v.(string)
			if !ok || strings.TrimSpace(str) == "" {
				continue
			}
			allowed[k] = strings.TrimSpace(str)
		case "rate":
			rate, ok := toFloat(v)
			if !ok || rate <= 0 {
				return nil, ErrInvalidRate
			}
			allowed[k] = rate
		case "rate_type":
			str, _ := v.(string)
			switch str {
			case domain.RateTypeHourly, domain.RateTypeFixed, domain.RateTypeDaily:
				allowed[k] = str
			default:
				return nil, ErrInvalidRateType
			}
		case "duration_minutes":
			d, ok := toFloat(v)
			if !ok || d <= 0 {
				return nil, ErrInvalidDuration
			}
			allowed[k] = int(d)
		case "is_active":
			if b, ok := v.(bool); ok {
				allowed[k] = b
			}
		}
	}
	if len(allowed) == 0 {
		return s.Get(ctx, id)
	}

	if err := repo.UpdateService(ctx, s.DB, id, providerID, allowed); err != nil {
		return nil, ErrServiceNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a listing owned by providerID.
func (s *CatalogService) Delete(ctx context.Context, providerID, id string) error {
	if err := repo.DeleteService(ctx, s.DB, id, providerID); err != nil {
		return ErrServiceNotFound
	}
	return nil
}

// ListMine returns every listing owned by providerID, newest first.
func (s *CatalogService) ListMine(ctx context.Context, providerID string) ([]domain.Service, error) {
	return repo.ListServicesByProvider(ctx, s.DB, providerID)
}

// ListActive returns every active listing across providers.
func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Service, error) {
	return repo.ListActiveServices(ctx, s.DB)
}

// toFloat coerces the numeric types JSON decoding may hand us.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
