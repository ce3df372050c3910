// Package services – BookingService
//
// This file implements BookingService, which owns the open-job side of the
// booking lifecycle: clients post jobs without a provider attached, providers
// apply, the poster accepts exactly one application, and confirmed work is
// eventually marked complete.
//
// Observability: the multi-step operations are OpenTelemetry-instrumented;
// spans include booking/user identifiers.
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BookingService coordinates open jobs, applications, and booking state
// transitions.
type BookingService struct {
	DB *gorm.DB
}

// JobInput carries the fields a client submits when posting an open job.
type JobInput struct {
	Amount      float64
	Currency    string
	BookingDate *time.Time
	Notes       string
}

// PostJob creates an open job: a pending booking with no provider and no
// payment session attached.
func (s *BookingService) PostJob(ctx context.Context, clientID string, in JobInput) (*domain.Booking, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := repo.GetProfile(ctx, s.DB, clientID); err != nil {
		return nil, ErrProfileNotFound
	}

	b := &domain.Booking{
		ClientID:    clientID,
		Amount:      in.Amount,
		Currency:    normalizeCurrency(in.Currency),
		Status:      domain.BookingStatusPending,
		BookingDate: in.BookingDate,
		Notes:       strings.TrimSpace(in.Notes),
	}
	if err := repo.CreateBooking(ctx, s.DB, b); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenJobs lists every job still accepting applications, newest first.
func (s *BookingService) OpenJobs(ctx context.Context) ([]domain.Booking, error) {
	return repo.ListOpenJobs(ctx, s.DB)
}

// Get returns a booking visible to userID, either as its client or its
// assigned provider.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if b.ClientID != userID && (b.ProviderID == nil || *b.ProviderID != userID) {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// ListMine returns the caller's bookings as a client, newest first.
func (s *BookingService) ListMine(ctx context.Context, clientID string) ([]domain.Booking, error) {
	return repo.ListBookingsByClient(ctx, s.DB, clientID)
}

// ListAssigned returns the bookings assigned to the caller as a provider.
func (s *BookingService) ListAssigned(ctx context.Context, providerID string) ([]domain.Booking, error) {
	return repo.ListBookingsByProvider(ctx, s.DB, providerID)
}

// Apply records a provider's application to an open job and notifies the
// poster. Self-applications and applications to non-open bookings are
// rejected.
func (s *BookingService) Apply(ctx context.Context, providerID, bookingID, message string) (*domain.Application, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", providerID),
		),
	)
	defer span.End()

	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if !b.IsOpenJob() || b.Status != domain.BookingStatusPending {
		return nil, ErrNotOpenJob
	}
	if b.ClientID == providerID {
		return nil, ErrOwnJobApplication
	}
	applicant, err := repo.GetProfile(ctx, s.DB, providerID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if applicant.Role != domain.RoleProvider {
		return nil, ErrNotProvider
	}

	var app *domain.Application
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.CreateApplication(ctx, tx, bookingID, providerID, strings.TrimSpace(message))
		if err != nil {
			return err
		}
		app = a
		_, err = repo.CreateNotification(ctx, tx, b.ClientID,
			"New application", applicant.DisplayName+" applied to your job",
			domain.NotificationTypeApplication)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Applications lists the applications for a booking. Only the job poster may
// see them.
func (s *BookingService) Applications(ctx context.Context, clientID, bookingID string) ([]domain.Application, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if b.ClientID != clientID {
		return nil, ErrNotJobPoster
	}
	return repo.ListApplicationsForBooking(ctx, s.DB, bookingID)
}

// MyApplications lists the caller's applications as a provider, newest first.
func (s *BookingService) MyApplications(ctx context.Context, providerID string) ([]domain.Application, error) {
	return repo.ListApplicationsByProvider(ctx, s.DB, providerID)
}

// AcceptApplication assigns the applicant as the booking's provider, marks
// the application accepted, and rejects every competing pending application,
// all in one transaction. The assignment is conditional on the booking still
// being unassigned, so concurrent accepts cannot both win.
func (s *BookingService) AcceptApplication(ctx context.Context, clientID, bookingID, applicationID string) error {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "AcceptApplication",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("application.id", applicationID),
			attribute.String("user.id", clientID),
		),
	)
	defer span.End()

	app, err := repo.GetApplication(ctx, s.DB, applicationID)
	if err != nil {
		return ErrApplicationNotFound
	}
	if app.BookingID != bookingID {
		return ErrApplicationMismatch
	}
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return ErrBookingNotFound
	}
	if b.ClientID != clientID {
		return ErrNotJobPoster
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.AssignProvider(ctx, tx, bookingID, app.ProviderID); err != nil {
			return ErrNotOpenJob
		}
		if err := repo.UpdateApplicationStatus(ctx, tx, applicationID, domain.ApplicationStatusAccepted); err != nil {
			return err
		}
		if err := repo.RejectCompetingApplications(ctx, tx, bookingID, applicationID); err != nil {
			return err
		}
		_, err := repo.CreateNotification(ctx, tx, app.ProviderID,
			"Application accepted", "Your application was accepted",
			domain.NotificationTypeApplication)
		return err
	})
}

// Complete marks a confirmed booking as completed. Only the client who made
// the booking may do so.
func (s *BookingService) Complete(ctx context.Context, clientID, bookingID string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if b.ClientID != clientID {
		return nil, ErrNotJobPoster
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, ErrNotConfirmed
	}

	if err := repo.TransitionBookingStatus(ctx, s.DB, bookingID, clientID,
		domain.BookingStatusConfirmed, domain.BookingStatusCompleted); err != nil {
		return nil, ErrNotConfirmed
	}
	return repo.GetBooking(ctx, s.DB, bookingID)
}

// normalizeCurrency lowercases an ISO currency code, defaulting to usd.
func normalizeCurrency(c string) string {
	c = strings.TrimSpace(strings.ToLower(c))
	if c == "" {
		return "usd"
	}
	return c
}
