// Service-listing HTTP handlers.
//
// This file exposes REST endpoints for provider listings:
//   - POST   /services        (create, providers only)
//   - GET    /services        (all active listings)
//   - GET    /services/mine   (caller's own listings)
//   - GET    /services/{id}   (single listing)
//   - PATCH  /services/{id}   (partial update, owner only)
//   - DELETE /services/{id}   (remove, owner only)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-marketplace-backend/internal/services"
)

// CreateServiceRequest is the JSON payload for creating a listing.
type CreateServiceRequest struct {
	Title           string  `json:"title" binding:"required" example:"Apartment deep clean"`
	Description     string  `json:"description" example:"Full deep clean including windows"`
	Category        string  `json:"category" binding:"required" example:"Deep Cleaning"`
	Rate            float64 `json:"rate" binding:"required" example:"80"`
	RateType        string  `json:"rate_type" binding:"required" example:"fixed"`
	DurationMinutes int     `json:"duration_minutes" binding:"required" example:"120"`
}

// CreateService godoc
// @ID          createService
// @Summary     Create a service listing
// @Description Creates an active listing for the calling provider.
// @Tags        Services
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
// @Param       body       body    handlers.CreateServiceRequest  true  "Listing payload"
//
// @Success     201  {object}  domain.Service
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a provider"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /services [post]
func (h *Handlers) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title, category, rate, rate_type and duration_minutes required")
		return
	}

	svc, err := h.catalogSvc.Create(c.Request.Context(), userID(c), services.ListingInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Rate:            req.Rate,
		RateType:        req.RateType,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotProvider):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only providers can create listings")
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		case errors.Is(err, services.ErrMissingTitle),
			errors.Is(err, services.ErrMissingCategory),
			errors.Is(err, services.ErrInvalidRate),
			errors.Is(err, services.ErrInvalidRateType),
			errors.Is(err, services.ErrInvalidDuration):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, svc)
}

// ListServices godoc
// @ID          listServices
// @Summary     List all active listings
// @Tags        Services
// @Produce     json
//
// @Success     200  {array}   domain.Service
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /services [get]
func (h *Handlers) ListServices(c *gin.Context) {
	items, err := h.catalogSvc.ListActive(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// ListMyServices godoc
// @ID          listMyServices
// @Summary     List the caller's listings
// @Tags        Services
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
//
// @Success     200  {array}   domain.Service
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /services/mine [get]
func (h *Handlers) ListMyServices(c *gin.Context) {
	items, err := h.catalogSvc.ListMine(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetService godoc
// @ID          getService
// @Summary     Fetch a single listing
// @Tags        Services
// @Produce     json
//
// @Param       id  path  string  true  "Service ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Service
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Service not found"
// @Router      /services/{id} [get]
func (h *Handlers) GetService(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service id must be a UUID")
		return
	}

	svc, err := h.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "service not found")
		return
	}
	ok(c, http.StatusOK, svc)
}

// UpdateService godoc
// @ID          updateService
// @Summary     Update a listing
// @Description Applies a partial update to a listing owned by the caller.
// @Tags        Services
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
// @Param       id         path    string  true  "Service ID (UUID)"      format(uuid)
// @Param       body       body    map[string]any  true  "Fields to update"
//
// @Success     200  {object}  domain.Service
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Service not found"
// @Router      /services/{id} [patch]
func (h *Handlers) UpdateService(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service id must be a UUID")
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil || len(updates) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "non-empty JSON object required")
		return
	}

	svc, err := h.catalogSvc.Update(c.Request.Context(), userID(c), id, updates)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRate),
			errors.Is(err, services.ErrInvalidRateType),
			errors.Is(err, services.ErrInvalidDuration):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "service not found")
		}
		return
	}
	ok(c, http.StatusOK, svc)
}

// DeleteService godoc
// @ID          deleteService
// @Summary     Delete a listing
// @Tags        Services
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(provider123)
// @Param       id         path    string  true  "Service ID (UUID)"      format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Service not found"
// @Router      /services/{id} [delete]
func (h *Handlers) DeleteService(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service id must be a UUID")
		return
	}

	if err := h.catalogSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "service not found")
		return
	}
	noContent(c)
}
