// Booking and open-job HTTP handlers.
//
// This file exposes REST endpoints for the booking lifecycle:
//   - POST /jobs                                  (post an open job)
//   - GET  /jobs                                  (list open jobs)
//   - POST /jobs/{id}/applications                (apply as provider)
//   - GET  /jobs/{id}/applications                (poster reviews applicants)
//   - POST /jobs/{id}/applications/{appID}/accept (assign the provider)
//   - GET  /applications/mine                     (provider's applications)
//   - GET  /bookings                              (client's bookings, ETag support)
//   - GET  /bookings/assigned                     (provider's bookings)
//   - GET  /bookings/{id}                         (single booking)
//   - POST /bookings/{id}/complete                (confirmed → completed)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/repo"
	"github.com/tbourn/go-marketplace-backend/internal/services"
)

//
// DTOs
//

// PostJobRequest is the JSON payload for posting an open job.
type PostJobRequest struct {
	// Amount is the client's budget for the job.
	Amount      float64    `json:"amount" binding:"required" example:"150"`
	Currency    string     `json:"currency" example:"usd"`
	BookingDate *time.Time `json:"booking_date,omitempty"`
	Notes       string     `json:"notes" example:"Fix the kitchen sink"`
}

// ApplyRequest is the JSON payload for applying to an open job.
type ApplyRequest struct {
	// Message is the provider's pitch to the poster.
	Message string `json:"message" example:"Licensed plumber, available tomorrow"`
}

//
// Handlers
//

// PostJob godoc
// @ID          postJob
// @Summary     Post an open job
// @Description Creates a pending booking with no provider attached. Providers apply to it.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       body       body    handlers.PostJobRequest  true  "Job payload"
//
// @Success     201  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Router      /jobs [post]
func (h *Handlers) PostJob(c *gin.Context) {
	var req PostJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount required")
		return
	}

	b, err := h.bookingSvc.PostJob(c.Request.Context(), userID(c), services.JobInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		BookingDate: req.BookingDate,
		Notes:       req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, b)
}

// ListOpenJobs godoc
// @ID          listOpenJobs
// @Summary     List open jobs
// @Description Returns every job still accepting applications, newest first.
// @Tags        Jobs
// @Produce     json
//
// @Success     200  {array}   domain.Booking
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListOpenJobs(c *gin.Context) {
	jobs, err := h.bookingSvc.OpenJobs(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, jobs)
}

// ApplyToJob godoc
// @ID          applyToJob
// @Summary     Apply to an open job
// @Description Records a provider's application and notifies the poster. Posters cannot apply to their own jobs.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
// @Param       id         path    string  true  "Booking ID (UUID)"      format(uuid)
// @Param       body       body    handlers.ApplyRequest  true  "Application payload"
//
// @Success     201  {object}  domain.Application
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Job not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Job is no longer open"
// @Router      /jobs/{id}/applications [post]
func (h *Handlers) ApplyToJob(c *gin.Context) {
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	app, err := h.bookingSvc.Apply(c.Request.Context(), userID(c), bookingID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		case errors.Is(err, services.ErrNotOpenJob):
			fail(c, http.StatusConflict, ErrCodeConflict, "job is no longer open")
		case errors.Is(err, services.ErrOwnJobApplication):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot apply to your own job")
		case errors.Is(err, services.ErrNotProvider):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only providers can apply")
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, app)
}

// ListJobApplications godoc
// @ID          listJobApplications
// @Summary     List applications for a job
// @Description Returns the applications for a job. Only the poster may call this.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       id         path    string  true  "Booking ID (UUID)"      format(uuid)
//
// @Success     200  {array}   domain.Application
// @Failure     403  {object}  handlers.ErrorResponse  "Not the poster"
// @Failure     404  {object}  handlers.ErrorResponse  "Job not found"
// @Router      /jobs/{id}/applications [get]
func (h *Handlers) ListJobApplications(c *gin.Context) {
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	apps, err := h.bookingSvc.Applications(c.Request.Context(), userID(c), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		case errors.Is(err, services.ErrNotJobPoster):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the poster can review applications")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, apps)
}

// AcceptApplication godoc
// @ID          acceptApplication
// @Summary     Accept an application
// @Description Assigns the applicant as the booking's provider and rejects competing applications atomically.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       id         path    string  true  "Booking ID (UUID)"      format(uuid)
// @Param       appID      path    string  true  "Application ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the poster"
// @Failure     404  {object}  handlers.ErrorResponse  "Job or application not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Job already assigned"
// @Router      /jobs/{id}/applications/{appID}/accept [post]
func (h *Handlers) AcceptApplication(c *gin.Context) {
	bookingID := c.Param("id")
	appID := c.Param("appID")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}
	if _, err := uuid.Parse(appID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "application id must be a UUID")
		return
	}

	err := h.bookingSvc.AcceptApplication(c.Request.Context(), userID(c), bookingID, appID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrApplicationNotFound), errors.Is(err, services.ErrBookingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, services.ErrApplicationMismatch):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrNotJobPoster):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the poster can accept applications")
		case errors.Is(err, services.ErrNotOpenJob):
			fail(c, http.StatusConflict, ErrCodeConflict, "job already assigned")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// ListMyApplications godoc
// @ID          listMyApplications
// @Summary     List the caller's applications
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
//
// @Success     200  {array}   domain.Application
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /applications/mine [get]
func (h *Handlers) ListMyApplications(c *gin.Context) {
	apps, err := h.bookingSvc.MyApplications(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, apps)
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List the caller's bookings as a client
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(client123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.Booking
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.bookingSvc.(*services.BookingService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.BookingsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"bookings:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.bookingSvc.ListMine(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// ListAssignedBookings godoc
// @ID          listAssignedBookings
// @Summary     List the caller's bookings as a provider
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
//
// @Success     200  {array}   domain.Booking
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings/assigned [get]
func (h *Handlers) ListAssignedBookings(c *gin.Context) {
	items, err := h.bookingSvc.ListAssigned(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetBooking godoc
// @ID          getBooking
// @Summary     Fetch a single booking
// @Description Visible only to the booking's client or assigned provider.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       id         path    string  true  "Booking ID (UUID)"      format(uuid)
//
// @Success     200  {object}  domain.Booking
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /bookings/{id} [get]
func (h *Handlers) GetBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	b, err := h.bookingSvc.Get(c.Request.Context(), userID(c), bookingID)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "booking not found")
		return
	}
	ok(c, http.StatusOK, b)
}

// CompleteBooking godoc
// @ID          completeBooking
// @Summary     Mark a confirmed booking as completed
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       id         path    string  true  "Booking ID (UUID)"      format(uuid)
//
// @Success     200  {object}  domain.Booking
// @Failure     403  {object}  handlers.ErrorResponse  "Not the booking's client"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Booking is not confirmed"
// @Router      /bookings/{id}/complete [post]
func (h *Handlers) CompleteBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	b, err := h.bookingSvc.Complete(c.Request.Context(), userID(c), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "booking not found")
		case errors.Is(err, services.ErrNotJobPoster):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the booking's client can complete it")
		case errors.Is(err, services.ErrNotConfirmed):
			fail(c, http.StatusConflict, ErrCodeConflict, "booking is not confirmed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, b)
}
