// Discovery HTTP handlers.
//
// This file exposes the browse/filter surface:
//   - GET /discovery/services  (filter active listings)
//   - GET /discovery/jobs      (filter open job posts)
//   - GET /discovery/markers   (map markers for filtered listings)
//
// Handlers assemble candidates from the catalog and profile layers, apply the
// pure in-memory discovery engine, and return the surviving candidates.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-marketplace-backend/internal/discovery"
	"github.com/tbourn/go-marketplace-backend/internal/domain"
)

// floatQuery parses a float query param, returning 0 when absent or invalid.
func floatQuery(c *gin.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return v
}

// filterFromQuery builds a discovery.Filter from the request query string.
func filterFromQuery(c *gin.Context) discovery.Filter {
	return discovery.Filter{
		Query:         c.Query("q"),
		Category:      c.Query("category"),
		MinRate:       floatQuery(c, "min_rate"),
		MaxRate:       floatQuery(c, "max_rate"),
		MinRating:     floatQuery(c, "min_rating"),
		MaxDistanceKm: floatQuery(c, "max_distance_km"),
	}
}

// listingCandidates joins active listings with their providers' profiles.
func (h *Handlers) listingCandidates(c *gin.Context) ([]discovery.Candidate, error) {
	ctx := c.Request.Context()

	items, err := h.catalogSvc.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	providers, err := h.profileSvc.Providers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Profile, len(providers))
	for _, p := range providers {
		byID[p.UserID] = p
	}

	out := make([]discovery.Candidate, 0, len(items))
	for _, svc := range items {
		cand := discovery.Candidate{
			ID:          svc.ID,
			Title:       svc.Title,
			Description: svc.Description,
			Category:    svc.Category,
			Rate:        svc.Rate,
			Active:      svc.IsActive,
		}
		if p, found := byID[svc.ProviderID]; found {
			cand.Name = p.DisplayName
			cand.Rating = p.Rating
			cand.Lat = p.Latitude
			cand.Lng = p.Longitude
		}
		out = append(out, cand)
	}
	return out, nil
}

// DiscoverServices godoc
// @ID          discoverServices
// @Summary     Filter active listings
// @Description Applies text, category (with hierarchy expansion), rate, rating, and distance filters. Criteria combine with AND.
// @Tags        Discovery
// @Produce     json
//
// @Param       q                query  string  false "Case-insensitive text match"
// @Param       category         query  string  false "Category; parents include their children"
// @Param       min_rate         query  number  false "Inclusive lower rate bound"
// @Param       max_rate         query  number  false "Inclusive upper rate bound"
// @Param       min_rating       query  number  false "Minimum provider rating"
// @Param       max_distance_km  query  number  false "Maximum distance in km"
//
// @Success     200  {array}   discovery.Candidate
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /discovery/services [get]
func (h *Handlers) DiscoverServices(c *gin.Context) {
	cands, err := h.listingCandidates(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, h.engine.Apply(filterFromQuery(c), cands))
}

// DiscoverJobs godoc
// @ID          discoverJobs
// @Summary     Filter open job posts
// @Description Applies the same filter semantics as listing discovery to open jobs.
// @Tags        Discovery
// @Produce     json
//
// @Param       q         query  string  false "Case-insensitive text match"
// @Param       min_rate  query  number  false "Inclusive lower budget bound"
// @Param       max_rate  query  number  false "Inclusive upper budget bound"
//
// @Success     200  {array}   discovery.Candidate
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /discovery/jobs [get]
func (h *Handlers) DiscoverJobs(c *gin.Context) {
	jobs, err := h.bookingSvc.OpenJobs(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	cands := make([]discovery.Candidate, 0, len(jobs))
	for _, j := range jobs {
		cands = append(cands, discovery.Candidate{
			ID:          j.ID,
			Title:       j.Notes,
			Description: j.Notes,
			Rate:        j.Amount,
			Active:      true,
		})
	}
	ok(c, http.StatusOK, h.engine.Apply(filterFromQuery(c), cands))
}

// DiscoverMarkers godoc
// @ID          discoverMarkers
// @Summary     Map markers for filtered listings
// @Description Returns one marker per filtered listing whose provider has coordinates.
// @Tags        Discovery
// @Produce     json
//
// @Param       q                query  string  false "Case-insensitive text match"
// @Param       category         query  string  false "Category; parents include their children"
//
// @Success     200  {array}   discovery.Marker
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /discovery/markers [get]
func (h *Handlers) DiscoverMarkers(c *gin.Context) {
	cands, err := h.listingCandidates(c)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	filtered := h.engine.Apply(filterFromQuery(c), cands)
	ok(c, http.StatusOK, discovery.BuildMarkers(filtered))
}
