package feed

import (
	"strings"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/geo"
)

// ProximityRadiusKm is the fixed inclusion radius of the proximity
// filter. Not configurable.
const ProximityRadiusKm = 1.0

// FilterAll disables an individual predicate.
const FilterAll = "all"

// Feed tabs map to one or more backend status values.
const (
	TabAll      = "all"
	TabAdoption = "adoption"
	TabAdopted  = "adopted"
	TabLost     = "lost"
)

// sizeSynonyms lists extra substrings a size category accepts beyond the
// category name itself. Publishers write size as free text, so "chico"
// must count as small.
var sizeSynonyms = map[string][]string{
	"pequeño": {"chico"},
}

// Filter is the active filter configuration of one feed view. All
// predicates are conjunctive.
type Filter struct {
	Tab       string    `json:"tab"`
	Species   string    `json:"species"`
	Size      string    `json:"size"`
	Location  string    `json:"location"`
	Search    string    `json:"search"`
	Proximity bool      `json:"proximity"`
	Anchor    geo.Point `json:"anchor"`
}

// DefaultFilter shows everything, newest first.
func DefaultFilter() Filter {
	return Filter{
		Tab:     TabAll,
		Species: FilterAll,
		Size:    FilterAll,
	}
}

// Statuses resolves the tab to the backend status values it covers.
func (f Filter) Statuses() []string {
	switch f.Tab {
	case TabAdoption:
		return []string{entities.StatusAvailable}
	case TabAdopted:
		return []string{entities.StatusAdopted}
	case TabLost:
		return []string{entities.StatusLost}
	default:
		return []string{entities.StatusAvailable, entities.StatusAdopted, entities.StatusLost}
	}
}

// Matches decides whether one record passes the full filter set.
// Predicates are pure, so evaluation order is free; we short-circuit on
// the first failure.
func (f Filter) Matches(a entities.Animal) bool {
	return f.matchesStatus(a) &&
		f.matchesSpecies(a) &&
		f.matchesSize(a) &&
		f.matchesLocation(a) &&
		f.matchesSearch(a) &&
		f.matchesProximity(a)
}

func (f Filter) matchesStatus(a entities.Animal) bool {
	for _, status := range f.Statuses() {
		if a.Status == status {
			return true
		}
	}
	return false
}

func (f Filter) matchesSpecies(a entities.Animal) bool {
	return f.Species == "" || f.Species == FilterAll || a.Species == f.Species
}

func (f Filter) matchesSize(a entities.Animal) bool {
	if f.Size == "" || f.Size == FilterAll {
		return true
	}
	size := strings.ToLower(a.Size)
	if strings.Contains(size, strings.ToLower(f.Size)) {
		return true
	}
	for _, synonym := range sizeSynonyms[strings.ToLower(f.Size)] {
		if strings.Contains(size, synonym) {
			return true
		}
	}
	return false
}

func (f Filter) matchesLocation(a entities.Animal) bool {
	if f.Location == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Location), strings.ToLower(f.Location))
}

func (f Filter) matchesSearch(a entities.Animal) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(a.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Description), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Location), needle) {
		return true
	}
	if a.Personality != nil && strings.Contains(strings.ToLower(*a.Personality), needle) {
		return true
	}
	return false
}

func (f Filter) matchesProximity(a entities.Animal) bool {
	if !f.Proximity {
		return true
	}
	// Records without coordinates are excluded outright.
	if !a.HasCoordinates() {
		return false
	}
	return geo.Distance(f.Anchor, geo.Point{Lat: *a.Latitude, Lng: *a.Longitude}) <= ProximityRadiusKm
}

// FilterPatch carries a partial filter update; nil fields keep their
// current value.
type FilterPatch struct {
	Tab       *string    `json:"tab,omitempty"`
	Species   *string    `json:"species,omitempty"`
	Size      *string    `json:"size,omitempty"`
	Location  *string    `json:"location,omitempty"`
	Search    *string    `json:"search,omitempty"`
	Proximity *bool      `json:"proximity,omitempty"`
	Anchor    *geo.Point `json:"anchor,omitempty"`
}

// Apply merges the patch into a copy of f.
func (p FilterPatch) Apply(f Filter) Filter {
	if p.Tab != nil {
		f.Tab = *p.Tab
	}
	if p.Species != nil {
		f.Species = *p.Species
	}
	if p.Size != nil {
		f.Size = *p.Size
	}
	if p.Location != nil {
		f.Location = *p.Location
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Proximity != nil {
		f.Proximity = *p.Proximity
	}
	if p.Anchor != nil {
		f.Anchor = *p.Anchor
	}
	return f
}
