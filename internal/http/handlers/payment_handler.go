// Payment HTTP handlers.
//
// This file exposes the paid booking surface:
//   - POST /checkout           (open a hosted checkout session)
//   - GET  /payments/verify    (client returns from checkout; confirm booking)
//   - POST /webhooks/payments  (provider-pushed completion events)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// checkout exists for (user, route, key), the handler replays the original
// booking and sets `Idempotency-Replayed: true` instead of opening a second
// session.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-marketplace-backend/internal/payments"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
	"github.com/tbourn/go-marketplace-backend/internal/services"
)

//
// DTOs
//

// CheckoutRequest is the JSON payload for opening a checkout session. Note
// that no amount field exists: the price is derived from the listing on the
// server.
type CheckoutRequest struct {
	ServiceID   string     `json:"service_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	BookingDate *time.Time `json:"booking_date,omitempty"`
	Notes       string     `json:"notes" example:"Please call on arrival"`
}

// CheckoutResponse carries the redirect target and the pending booking.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
	BookingID string `json:"booking_id"`
}

// VerifyResponse reports the outcome of a payment verification.
type VerifyResponse struct {
	Status       string `json:"status"`
	Paid         bool   `json:"paid"`
	Transitioned bool   `json:"transitioned"`
	EmailsSent   int    `json:"emails_sent"`
	BookingID    string `json:"booking_id,omitempty"`
}

//
// Handlers
//

// Checkout godoc
// @ID          checkout
// @Summary     Open a hosted checkout session
// @Description Derives the amount from the listing, opens a payment session, and records a pending booking. Supports idempotency via the Idempotency-Key header (same key → same booking).
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(client123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.CheckoutRequest  true  "Checkout payload"
//
// @Success     200  {object}  handlers.CheckoutResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile or service not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Service is not active"
// @Failure     502  {object}  handlers.ErrorResponse  "Payment provider failure"
// @Router      /checkout [post]
func (h *Handlers) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service_id required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.paySvc.(*services.PaymentService); okSvc && svc.DB != nil {
			scope := c.FullPath()
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetBooking(ctx, svc.DB, rec.ResourceID); err2 == nil && prev.StripeSessionID != nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, CheckoutResponse{
						SessionID: *prev.StripeSessionID,
						BookingID: prev.ID,
					})
					return
				}
			}
		}
	}

	res, err := h.paySvc.Checkout(ctx, currentUser, services.CheckoutInput{
		ServiceID:   req.ServiceID,
		BookingDate: req.BookingDate,
		Notes:       req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		case errors.Is(err, services.ErrServiceNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "service not found")
		case errors.Is(err, services.ErrServiceInactive):
			fail(c, http.StatusConflict, ErrCodeConflict, "service is not active")
		case errors.Is(err, services.ErrMissingEmail):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "profile has no email address")
		default:
			fail(c, http.StatusBadGateway, ErrCodeCheckoutFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.paySvc.(*services.PaymentService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, c.FullPath(), idemKey, res.Booking.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, CheckoutResponse{
		URL:       res.RedirectURL,
		SessionID: res.SessionID,
		BookingID: res.Booking.ID,
	})
}

// VerifyPayment godoc
// @ID          verifyPayment
// @Summary     Verify a checkout session
// @Description Re-reads the session from the payment provider and confirms the booking when paid. Safe to retry: confirmation and email fan-out happen at most once.
// @Tags        Payments
// @Produce     json
//
// @Param       session_id  query  string  true  "Checkout session id"
//
// @Success     200  {object}  handlers.VerifyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing session_id"
// @Failure     404  {object}  handlers.ErrorResponse  "Session or booking not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Email dispatch failed after confirmation"
// @Router      /payments/verify [get]
func (h *Handlers) VerifyPayment(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		return
	}

	res, err := h.paySvc.Verify(c.Request.Context(), sessionID)
	if err != nil && !errors.Is(err, services.ErrEmailDispatch) {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "checkout session not found")
		case errors.Is(err, services.ErrBookingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no booking for this session")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeVerifyFailed, err.Error())
		}
		return
	}

	resp := VerifyResponse{
		Paid:         res.Paid,
		Transitioned: res.Transitioned,
		EmailsSent:   res.EmailsSent,
	}
	if res.Booking != nil {
		resp.Status = res.Booking.Status
		resp.BookingID = res.Booking.ID
	}

	// The booking is confirmed even when the emails failed; report the email
	// failure without undoing the verification outcome.
	if errors.Is(err, services.ErrEmailDispatch) {
		fail(c, http.StatusBadGateway, ErrCodeEmailFailed, "booking confirmed but confirmation email failed")
		return
	}
	ok(c, http.StatusOK, resp)
}

// PaymentWebhook godoc
// @ID          paymentWebhook
// @Summary     Payment provider webhook
// @Description Accepts signed checkout.session.completed events and runs the same idempotent verification as the client return path.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Webhook signature"
//
// @Success     200  {object}  handlers.VerifyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload or signature"
// @Router      /webhooks/payments [post]
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable payload")
		return
	}

	sessionID, completed, err := payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid webhook signature")
		return
	}
	if !completed {
		// Unhandled event type; acknowledge so the provider stops retrying.
		ok(c, http.StatusOK, gin.H{"received": true})
		return
	}

	res, err := h.paySvc.Verify(c.Request.Context(), sessionID)
	if err != nil && !errors.Is(err, services.ErrEmailDispatch) {
		fail(c, http.StatusInternalServerError, ErrCodeVerifyFailed, err.Error())
		return
	}

	resp := VerifyResponse{
		Paid:         res.Paid,
		Transitioned: res.Transitioned,
		EmailsSent:   res.EmailsSent,
	}
	if res.Booking != nil {
		resp.Status = res.Booking.Status
		resp.BookingID = res.Booking.ID
	}
	ok(c, http.StatusOK, resp)
}
