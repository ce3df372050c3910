// Package discovery provides a simple, deterministic, concurrency-safe
// in-memory filter engine for provider and job listings. It is intentionally
// small and dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Pure, idempotent filtering: applying the same Filter twice over the
//     same input yields the same output, with no hidden mutation
//   - Deterministic output order (input order is preserved)
//   - Sensible defaults (built-in category hierarchy, placeholder distance)
//
// All filter criteria combine with logical AND. There is no pagination,
// ranking, or relevance scoring: the engine performs a full scan of an
// already-fetched bounded set.
package discovery

import "strings"

// DefaultDistanceKm is the placeholder distance attached to candidates that
// carry no real measurement. Distance is not computed from geo-coordinates;
// the map widget owns geolocation.
const DefaultDistanceKm = 5.0

// Candidate is one filterable listing: either a provider (with an active
// service) or an open job post. The engine never inspects anything beyond
// these fields.
type Candidate struct {
	ID          string
	Name        string
	Title       string
	Description string
	Category    string
	Rate        float64
	Rating      float64
	DistanceKm  float64 // 0 means "unknown"; the engine substitutes DefaultDistanceKm
	Active      bool
	Lat         float64
	Lng         float64
}

// Filter is a set of client-supplied criteria. Zero values disable the
// corresponding predicate, except MinRate which is inclusive from 0.
type Filter struct {
	// Query matches case-insensitively as a substring against name, title,
	// and description.
	Query string
	// Category matches equal categories, expanded through the hierarchy:
	// filtering by a parent also admits its declared children.
	Category string
	// MinRate/MaxRate bound the rate inclusively. MaxRate <= 0 means
	// unbounded above.
	MinRate float64
	MaxRate float64
	// MinRating is the minimum acceptable rating.
	MinRating float64
	// MaxDistanceKm is the maximum acceptable distance. <= 0 means
	// unbounded.
	MaxDistanceKm float64
}

// Hierarchy maps a parent category to its child categories. Matching a
// parent includes every declared child; children match only themselves.
type Hierarchy map[string][]string

// DefaultHierarchy is the static parent → child expansion table for the
// fixed marketplace taxonomy.
var DefaultHierarchy = Hierarchy{
	"Cleaning":     {"Deep Cleaning", "Window Cleaning", "Carpet Cleaning"},
	"Repairs":      {"Plumbing", "Electrical", "Appliance Repair"},
	"Outdoor":      {"Gardening", "Landscaping", "Snow Removal"},
	"Personal":     {"Beauty", "Fitness", "Tutoring"},
	"Tech Support": {"Computer Repair", "Smart Home Setup"},
}

// ----------------------------------------------------------------------------
// Options

// Option customizes an Engine.
type Option func(*Engine)

// WithHierarchy replaces the default category hierarchy.
func WithHierarchy(h Hierarchy) Option {
	return func(e *Engine) {
		if h != nil {
			e.hierarchy = h
		}
	}
}

// WithDefaultDistance overrides the placeholder distance substituted for
// candidates with an unknown distance.
func WithDefaultDistance(km float64) Option {
	return func(e *Engine) {
		if km > 0 {
			e.defaultDistance = km
		}
	}
}

// ----------------------------------------------------------------------------
// Engine

// Engine applies Filters over candidate sets. The zero-value is not usable;
// construct with NewEngine. An Engine is immutable after construction and
// safe for concurrent use.
type Engine struct {
	hierarchy       Hierarchy
	defaultDistance float64
}

// NewEngine builds an Engine with the default hierarchy and placeholder
// distance, then applies any options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		hierarchy:       DefaultHierarchy,
		defaultDistance: DefaultDistanceKm,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply returns the subset of items matching every criterion in f, in input
// order. Inactive candidates are always excluded, regardless of any other
// matching criteria. The input slice is never mutated.
func (e *Engine) Apply(f Filter, items []Candidate) []Candidate {
	out := make([]Candidate, 0, len(items))
	cats := e.expandCategory(f.Category)
	q := strings.ToLower(strings.TrimSpace(f.Query))

	for _, it := range items {
		if !it.Active {
			continue
		}
		if q != "" && !matchesText(it, q) {
			continue
		}
		if len(cats) > 0 {
			if _, ok := cats[it.Category]; !ok {
				continue
			}
		}
		if it.Rate < f.MinRate {
			continue
		}
		if f.MaxRate > 0 && it.Rate > f.MaxRate {
			continue
		}
		if it.Rating < f.MinRating {
			continue
		}
		if f.MaxDistanceKm > 0 {
			d := it.DistanceKm
			if d == 0 {
				d = e.defaultDistance
			}
			if d > f.MaxDistanceKm {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// expandCategory returns the admissible category set for a filter category:
// the category itself plus its declared children. An empty category returns
// nil, disabling the predicate.
func (e *Engine) expandCategory(category string) map[string]struct{} {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}
	set := map[string]struct{}{category: {}}
	for _, child := range e.hierarchy[category] {
		set[child] = struct{}{}
	}
	return set
}

// matchesText reports whether the lowercased query appears in any of the
// candidate's textual fields.
func matchesText(it Candidate, q string) bool {
	return strings.Contains(strings.ToLower(it.Name), q) ||
		strings.Contains(strings.ToLower(it.Title), q) ||
		strings.Contains(strings.ToLower(it.Description), q)
}
