// Handler wiring.
//
// This file defines the service contracts the HTTP layer consumes, the
// Handlers aggregate that groups every endpoint, and small helpers shared
// across handler files (identity extraction, pagination clamping, idempotency
// key access).
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-marketplace-backend/internal/discovery"
	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/services"
	"github.com/tbourn/go-marketplace-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ProfileService defines profile lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ProfileService interface {
	// Ensure returns the caller's profile, creating it on first contact.
	Ensure(ctx context.Context, userID, email, displayName, role string) (*domain.Profile, error)
	// Get returns the caller's profile.
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	// Update applies a partial profile update. Role changes are rejected.
	Update(ctx context.Context, userID string, in services.ProfileUpdate) (*domain.Profile, error)
	// Providers lists all provider profiles, best rated first.
	Providers(ctx context.Context) ([]domain.Profile, error)
}

// CatalogService defines service-listing operations consumed by HTTP handlers.
type CatalogService interface {
	Create(ctx context.Context, providerID string, in services.ListingInput) (*domain.Service, error)
	Get(ctx context.Context, id string) (*domain.Service, error)
	Update(ctx context.Context, providerID, id string, updates map[string]any) (*domain.Service, error)
	Delete(ctx context.Context, providerID, id string) error
	ListMine(ctx context.Context, providerID string) ([]domain.Service, error)
	ListActive(ctx context.Context) ([]domain.Service, error)
}

// BookingService defines open-job and booking lifecycle operations.
type BookingService interface {
	PostJob(ctx context.Context, clientID string, in services.JobInput) (*domain.Booking, error)
	OpenJobs(ctx context.Context) ([]domain.Booking, error)
	Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	ListMine(ctx context.Context, clientID string) ([]domain.Booking, error)
	ListAssigned(ctx context.Context, providerID string) ([]domain.Booking, error)
	Apply(ctx context.Context, providerID, bookingID, message string) (*domain.Application, error)
	Applications(ctx context.Context, clientID, bookingID string) ([]domain.Application, error)
	MyApplications(ctx context.Context, providerID string) ([]domain.Application, error)
	AcceptApplication(ctx context.Context, clientID, bookingID, applicationID string) error
	Complete(ctx context.Context, clientID, bookingID string) (*domain.Booking, error)
}

// PaymentService defines checkout and verification operations.
type PaymentService interface {
	Checkout(ctx context.Context, clientID string, in services.CheckoutInput) (*services.CheckoutResult, error)
	Verify(ctx context.Context, sessionID string) (*services.VerifyResult, error)
}

// MessageService defines direct-messaging operations.
type MessageService interface {
	Send(ctx context.Context, senderID string, in services.SendInput) (*domain.Message, error)
	ListConversation(ctx context.Context, userID, otherID string, page, pageSize int) ([]domain.Message, int64, error)
	Conversations(ctx context.Context, userID string) ([]services.ConversationSummary, error)
	MarkRead(ctx context.Context, userID, otherID string) (int64, error)
}

// NotificationService defines in-app notification reads.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for profiles, listings, discovery,
// bookings, payments, messaging, and notifications. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	profileSvc ProfileService
	catalogSvc CatalogService
	bookingSvc BookingService
	paySvc     PaymentService
	msgSvc     MessageService
	notifSvc   NotificationService

	engine *discovery.Engine

	// webhookSecret validates payment-provider webhook signatures.
	webhookSecret string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(
	profileSvc ProfileService,
	catalogSvc CatalogService,
	bookingSvc BookingService,
	paySvc PaymentService,
	msgSvc MessageService,
	notifSvc NotificationService,
	engine *discovery.Engine,
	webhookSecret string,
) *Handlers {
	return &Handlers{
		profileSvc:    profileSvc,
		catalogSvc:    catalogSvc,
		bookingSvc:    bookingSvc,
		paySvc:        paySvc,
		msgSvc:        msgSvc,
		notifSvc:      notifSvc,
		engine:        engine,
		webhookSecret: webhookSecret,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// buildPagination computes the metadata envelope for a page of total items.
func buildPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
