// Package services – ProfileService
//
// This file implements ProfileService, the application-level component that
// owns user profiles. A profile is created lazily on first contact, carries a
// role that is set exactly once, and backs every other module's identity
// checks.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// ProfileRepo abstracts persistence for profiles so the service can be tested
// with fakes.
type ProfileRepo interface {
	CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, userID string, updates map[string]any) error
	ListProviders(ctx context.Context, db *gorm.DB) ([]domain.Profile, error)
}

// ProfileService coordinates profile creation and updates.
type ProfileService struct {
	DB   *gorm.DB
	Repo ProfileRepo

	// NameLocale controls title casing when a display name is derived from
	// an email address. Defaults to language.English when unset.
	NameLocale language.Tag
}

// ProfileUpdate carries the mutable profile fields. Role is accepted so the
// immutability rule can be enforced with a precise error instead of a silent
// drop.
type ProfileUpdate struct {
	DisplayName *string
	Phone       *string
	Bio         *string
	Skills      []string
	AvatarURL   *string
	Latitude    *float64
	Longitude   *float64
	Role        *string
}

// Ensure returns the profile for userID, creating it on first contact.
// The role is validated and persisted only at creation time; subsequent calls
// ignore the role argument entirely.
func (s *ProfileService) Ensure(ctx context.Context, userID, emailAddr, displayName, role string) (*domain.Profile, error) {
	if p, err := s.Repo.GetProfile(ctx, s.DB, userID); err == nil {
		return p, nil
	}

	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = domain.RoleClient
	}
	if role != domain.RoleClient && role != domain.RoleProvider {
		return nil, ErrInvalidRole
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = s.nameFromEmail(emailAddr)
	}

	p := &domain.Profile{
		UserID:      userID,
		DisplayName: displayName,
		Email:       strings.TrimSpace(emailAddr),
		Role:        role,
	}
	if err := s.Repo.CreateProfile(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the profile for userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Update applies the provided fields to the caller's profile. A role change
// is rejected with ErrRoleImmutable; every other field is optional.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*domain.Profile, error) {
	current, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if in.Role != nil && strings.TrimSpace(strings.ToLower(*in.Role)) != current.Role {
		return nil, ErrRoleImmutable
	}

	updates := map[string]any{}
	if in.DisplayName != nil {
		if v := strings.TrimSpace(*in.DisplayName); v != "" {
			updates["display_name"] = v
		}
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		updates["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Skills != nil {
		updates["skills"] = joinSkills(in.Skills)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}
	if len(updates) == 0 {
		return current, nil
	}

	if err := s.Repo.UpdateProfile(ctx, s.DB, userID, updates); err != nil {
		return nil, ErrProfileNotFound
	}
	return s.Repo.GetProfile(ctx, s.DB, userID)
}

// Providers lists all provider profiles, best rated first.
func (s *ProfileService) Providers(ctx context.Context) ([]domain.Profile, error) {
	return s.Repo.ListProviders(ctx, s.DB)
}

// nameFromEmail derives a presentable display name from the local part of an
// email address: "jane.doe@example.com" becomes "Jane Doe".
func (s *ProfileService) nameFromEmail(emailAddr string) string {
	local := emailAddr
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	local = strings.Join(strings.Fields(local), " ")
	if local == "" {
		return "New user"
	}

	tag := s.NameLocale
	if tag == (language.Tag{}) {
		tag = language.English
	}
	return cases.Title(tag).String(local)
}

// joinSkills normalizes a skill list into the CSV form stored on the profile.
func joinSkills(skills []string) string {
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		if sk = strings.TrimSpace(sk); sk != "" {
			out = append(out, sk)
		}
	}
	return strings.Join(out, ",")
}
