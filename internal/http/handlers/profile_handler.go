// Profile HTTP handlers.
//
// This file exposes REST endpoints for profile resources:
//   - POST /profile     (ensure: create on first contact)
//   - GET  /profile     (fetch own profile)
//   - PUT  /profile     (partial update; role is immutable)
//   - GET  /providers   (public provider directory)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-marketplace-backend/internal/services"
)

//
// DTOs
//

// EnsureProfileRequest is the JSON payload for the first-contact profile call.
type EnsureProfileRequest struct {
	// Email is required so booking confirmations can reach the user.
	Email string `json:"email" binding:"required,email" example:"jane.doe@example.com"`
	// DisplayName optionally overrides the name derived from the email.
	DisplayName string `json:"display_name" example:"Jane Doe"`
	// Role is set exactly once: "client" (default) or "provider".
	Role string `json:"role" example:"provider"`
}

// UpdateProfileRequest is the JSON payload for a partial profile update.
// Omitted fields are left untouched.
type UpdateProfileRequest struct {
	DisplayName *string  `json:"display_name,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Bio         *string  `json:"bio,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	AvatarURL   *string  `json:"avatar_url,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Role        *string  `json:"role,omitempty"`
}

//
// Handlers
//

// EnsureProfile godoc
// @ID          ensureProfile
// @Summary     Create or fetch the caller's profile
// @Description Returns the existing profile, or creates one with the given role on first contact.
// @Tags        Profiles
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.EnsureProfileRequest  true  "Profile payload"
//
// @Success     200  {object}  domain.Profile
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profile [post]
func (h *Handlers) EnsureProfile(c *gin.Context) {
	var req EnsureProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid email required")
		return
	}

	p, err := h.profileSvc.Ensure(c.Request.Context(), userID(c), req.Email, req.DisplayName, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRole) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Fetch the caller's profile
// @Tags        Profiles
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  domain.Profile
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.profileSvc.Get(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the caller's profile
// @Description Applies a partial update. The role field is immutable and a change attempt returns 409.
// @Tags        Profiles
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.UpdateProfileRequest  true  "Fields to update"
//
// @Success     200  {object}  domain.Profile
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Role is immutable"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.profileSvc.Update(c.Request.Context(), userID(c), services.ProfileUpdate{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Bio:         req.Bio,
		Skills:      req.Skills,
		AvatarURL:   req.AvatarURL,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Role:        req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoleImmutable):
			fail(c, http.StatusConflict, ErrCodeConflict, "role cannot be changed")
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, p)
}

// ListProviders godoc
// @ID          listProviders
// @Summary     List provider profiles
// @Description Returns all provider profiles ordered by rating.
// @Tags        Profiles
// @Produce     json
//
// @Success     200  {array}   domain.Profile
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /providers [get]
func (h *Handlers) ListProviders(c *gin.Context) {
	providers, err := h.profileSvc.Providers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, providers)
}
