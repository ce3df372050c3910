// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbourn/go-marketplace-backend/internal/config"
	"github.com/tbourn/go-marketplace-backend/internal/discovery"
	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/email"
	"github.com/tbourn/go-marketplace-backend/internal/http/handlers"
	"github.com/tbourn/go-marketplace-backend/internal/http/middleware"
	"github.com/tbourn/go-marketplace-backend/internal/payments"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
	"github.com/tbourn/go-marketplace-backend/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// profileRepoShim adapts the repository free functions to the
// services.ProfileRepo interface expected by the ProfileService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type profileRepoShim struct{}

// CreateProfile proxies repo.CreateProfile.
func (profileRepoShim) CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	return repo.CreateProfile(ctx, db, p)
}

// GetProfile proxies repo.GetProfile.
func (profileRepoShim) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, userID)
}

// UpdateProfile proxies repo.UpdateProfile.
func (profileRepoShim) UpdateProfile(ctx context.Context, db *gorm.DB, userID string, updates map[string]any) error {
	return repo.UpdateProfile(ctx, db, userID, updates)
}

// ListProviders proxies repo.ListProviders.
func (profileRepoShim) ListProviders(ctx context.Context, db *gorm.DB) ([]domain.Profile, error) {
	return repo.ListProviders(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, provider payments.Provider, mailer email.Mailer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
			"Stripe-Signature",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/provider/mailer
	profileSvc := &services.ProfileService{
		DB:         db,
		Repo:       profileRepoShim{},
		NameLocale: language.English,
	}
	catalogSvc := &services.CatalogService{DB: db}
	bookingSvc := &services.BookingService{DB: db}
	paySvc := &services.PaymentService{
		DB:         db,
		Provider:   provider,
		Mailer:     mailer,
		SuccessURL: cfg.Checkout.SuccessURL,
		CancelURL:  cfg.Checkout.CancelURL,
		Currency:   cfg.Checkout.Currency,
	}
	msgSvc := &services.MessageService{
		DB:           db,
		MaxBodyRunes: 4000,
	}
	notifSvc := &services.NotificationService{DB: db}

	engine := discovery.NewEngine()
	h := handlers.New(profileSvc, catalogSvc, bookingSvc, paySvc, msgSvc, notifSvc, engine, cfg.Stripe.WebhookSecret)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Profiles
		api.POST("/profile", h.EnsureProfile)
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpdateProfile)
		api.GET("/providers", h.ListProviders)

		// Service listings
		api.POST("/services", h.CreateService)
		api.GET("/services", h.ListServices)
		api.GET("/services/mine", h.ListMyServices)
		api.GET("/services/:id", h.GetService)
		api.PATCH("/services/:id", h.UpdateService)
		api.DELETE("/services/:id", h.DeleteService)

		// Discovery
		api.GET("/discovery/services", h.DiscoverServices)
		api.GET("/discovery/jobs", h.DiscoverJobs)
		api.GET("/discovery/markers", h.DiscoverMarkers)

		// Open jobs and applications
		api.POST("/jobs", h.PostJob)
		api.GET("/jobs", h.ListOpenJobs)
		api.POST("/jobs/:id/applications", h.ApplyToJob)
		api.GET("/jobs/:id/applications", h.ListJobApplications)
		api.POST("/jobs/:id/applications/:appID/accept", h.AcceptApplication)
		api.GET("/applications/mine", h.ListMyApplications)

		// Bookings
		api.GET("/bookings", h.ListBookings)
		api.GET("/bookings/assigned", h.ListAssignedBookings)
		api.GET("/bookings/:id", h.GetBooking)
		api.POST("/bookings/:id/complete", h.CompleteBooking)

		// Payments
		api.POST("/checkout", h.Checkout)
		api.GET("/payments/verify", h.VerifyPayment)
		api.POST("/webhooks/payments", h.PaymentWebhook)

		// Messaging
		api.POST("/messages", h.SendMessage)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:user", h.ListConversation)
		api.POST("/conversations/:user/read", h.MarkConversationRead)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread_count", h.UnreadNotificationCount)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
