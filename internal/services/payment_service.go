// Package services – PaymentService
//
// This file implements PaymentService, which drives the paid booking flow:
// Checkout opens a hosted payment session with a server-derived amount and
// records a pending booking against it; Verify re-reads the session from the
// payment provider, flips the booking to confirmed exactly once, and fans out
// confirmation emails and notifications only on that first transition, so a
// replayed verification can never re-send.
//
// Observability: both public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/email"
	"github.com/tbourn/go-marketplace-backend/internal/payments"
	"github.com/tbourn/go-marketplace-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PaymentService coordinates checkout sessions, payment verification, and the
// confirmation fan-out.
type PaymentService struct {
	DB       *gorm.DB
	Provider payments.Provider
	Mailer   email.Mailer

	SuccessURL string
	CancelURL  string
	// Currency is the ISO 4217 code charged at checkout. Falls back to
	// "usd" when unset.
	Currency string
}

func (s *PaymentService) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return s.Currency
}

// CheckoutInput carries the client's booking request. The amount is never
// taken from here; it is derived from the listing on the server.
type CheckoutInput struct {
	ServiceID   string
	BookingDate *time.Time
	Notes       string
}

// CheckoutResult is returned to the handler for the redirect.
type CheckoutResult struct {
	Booking     *domain.Booking
	SessionID   string
	RedirectURL string
}

// VerifyResult reports the outcome of a payment verification.
type VerifyResult struct {
	Booking *domain.Booking
	// Paid reports whether the provider considers the session settled.
	Paid bool
	// Transitioned reports whether this call moved the booking from pending
	// to confirmed. False on replays of an already-verified session.
	Transitioned bool
	// EmailsSent counts confirmation emails dispatched by this call.
	EmailsSent int
}

// Checkout resolves the listing, derives the amount from its rate, opens a
// hosted checkout session, and records a pending booking tied to the session.
func (s *PaymentService) Checkout(ctx context.Context, clientID string, in CheckoutInput) (*CheckoutResult, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Checkout",
		trace.WithAttributes(
			attribute.String("service.id", in.ServiceID),
			attribute.String("user.id", clientID),
		),
	)
	defer span.End()

	client, err := repo.GetProfile(ctx, s.DB, clientID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if strings.TrimSpace(client.Email) == "" {
		return nil, ErrMissingEmail
	}

	svc, err := repo.GetService(ctx, s.DB, in.ServiceID)
	if err != nil {
		return nil, ErrServiceNotFound
	}
	if !svc.IsActive {
		return nil, ErrServiceInactive
	}

	sess, err := s.Provider.CreateSession(ctx, payments.SessionParams{
		CustomerEmail: client.Email,
		Currency:      s.currency(),
		UnitAmount:    int64(math.Round(svc.Rate * 100)),
		ProductName:   svc.Title,
		SuccessURL:    s.SuccessURL,
		CancelURL:     s.CancelURL,
		Metadata: map[string]string{
			"service_id":  svc.ID,
			"provider_id": svc.ProviderID,
			"client_id":   clientID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	b := &domain.Booking{
		ClientID:        clientID,
		ProviderID:      &svc.ProviderID,
		ServiceID:       &svc.ID,
		Amount:          svc.Rate,
		Currency:        s.currency(),
		Status:          domain.BookingStatusPending,
		StripeSessionID: &sess.ID,
		BookingDate:     in.BookingDate,
		Notes:           strings.TrimSpace(in.Notes),
	}
	if err := repo.CreateBooking(ctx, s.DB, b); err != nil {
		// The session exists at the provider but has no booking row; it will
		// never verify. Log enough to reconcile it by hand.
		log.Error().Err(err).
			Str("session_id", sess.ID).
			Str("client_id", clientID).
			Str("service_id", svc.ID).
			Msg("booking insert failed after session creation")
		return nil, fmt.Errorf("record booking: %w", err)
	}

	return &CheckoutResult{Booking: b, SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

// Verify re-reads the checkout session from the provider and, when it is
// paid, confirms the matching booking. Emails and notifications go out only
// when this call performed the pending-to-confirmed transition, which makes
// verification safe to retry and immune to double sends.
func (s *PaymentService) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Verify",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	sess, err := s.Provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	booking, err := repo.GetBookingBySession(ctx, s.DB, sessionID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	res := &VerifyResult{Booking: booking, Paid: sess.Paid()}
	if !res.Paid {
		return res, nil
	}

	transitioned, err := repo.ConfirmBookingBySession(ctx, s.DB, sessionID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	res.Transitioned = transitioned

	booking, err = repo.GetBookingBySession(ctx, s.DB, sessionID)
	if err == nil {
		res.Booking = booking
	}

	if !transitioned {
		return res, nil
	}

	s.notifyParties(ctx, res.Booking)

	sent, mailErr := s.sendConfirmations(ctx, res.Booking)
	res.EmailsSent = sent
	if mailErr != nil {
		return res, fmt.Errorf("%w: %v", ErrEmailDispatch, mailErr)
	}
	return res, nil
}

// notifyParties writes in-app notifications for both sides of a freshly
// confirmed booking. Failures are logged, not surfaced; the confirmation is
// already durable.
func (s *PaymentService) notifyParties(ctx context.Context, b *domain.Booking) {
	if _, err := repo.CreateNotification(ctx, s.DB, b.ClientID,
		"Booking confirmed", "Your payment was received and the booking is confirmed",
		domain.NotificationTypeBooking); err != nil {
		log.Warn().Err(err).Str("booking_id", b.ID).Msg("client notification write failed")
	}
	if b.ProviderID == nil {
		return
	}
	if _, err := repo.CreateNotification(ctx, s.DB, *b.ProviderID,
		"New booking", "A client booked and paid for your service",
		domain.NotificationTypeBooking); err != nil {
		log.Warn().Err(err).Str("booking_id", b.ID).Msg("provider notification write failed")
	}
}

// sendConfirmations renders and sends the client and provider confirmation
// emails. Missing profiles or listings downgrade the fan-out rather than
// failing the verification.
func (s *PaymentService) sendConfirmations(ctx context.Context, b *domain.Booking) (int, error) {
	if s.Mailer == nil {
		return 0, nil
	}

	client, err := repo.GetProfile(ctx, s.DB, b.ClientID)
	if err != nil {
		log.Warn().Str("booking_id", b.ID).Msg("client profile missing, skipping emails")
		return 0, nil
	}

	data := email.BookingConfirmation{
		BookingID:   b.ID,
		ClientName:  client.DisplayName,
		Amount:      b.Amount,
		Currency:    b.Currency,
		BookingDate: b.BookingDate,
	}
	var provider *domain.Profile
	if b.ProviderID != nil {
		if p, err := repo.GetProfile(ctx, s.DB, *b.ProviderID); err == nil {
			provider = p
			data.ProviderName = p.DisplayName
		}
	}
	if b.ServiceID != nil {
		if svc, err := repo.GetService(ctx, s.DB, *b.ServiceID); err == nil {
			data.ServiceTitle = svc.Title
		}
	}

	sent := 0
	var firstErr error

	if strings.TrimSpace(client.Email) != "" {
		subject, body, err := email.RenderClientConfirmation(data)
		if err == nil {
			_, err = s.Mailer.Send(ctx, client.Email, subject, body)
		}
		if err != nil {
			firstErr = fmt.Errorf("client email: %w", err)
		} else {
			sent++
		}
	}
	if provider != nil && strings.TrimSpace(provider.Email) != "" {
		subject, body, err := email.RenderProviderConfirmation(data)
		if err == nil {
			_, err = s.Mailer.Send(ctx, provider.Email, subject, body)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("provider email: %w", err)
		} else if err == nil {
			sent++
		}
	}
	return sent, firstErr
}
