package catalog

import (
	"errors"
	"strings"

	"github.com/forkful/recommender/internal/geo"
)

// ErrInvalidVenue is returned when a catalog row cannot be turned into a Venue.
var ErrInvalidVenue = errors.New("invalid venue")

// Venue is a restaurant as stored in the catalog. It is read-only to the
// recommendation pipeline.
type Venue struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Address      string        `json:"address,omitempty"`
	City         string        `json:"city,omitempty"`
	Location     *geo.Point    `json:"location,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Website      string        `json:"website,omitempty"`
	Rating       float64       `json:"rating"`
	ReviewCount  int           `json:"review_count"`
	PriceLevel   int           `json:"price_level,omitempty"` // 1-4, 0 when unknown
	Categories   []string      `json:"categories,omitempty"`
	OpeningHours *OpeningHours `json:"opening_hours,omitempty"`
	Photos       []string      `json:"photos,omitempty"`
	Summary      string        `json:"summary,omitempty"`

	SummaryEmbedding []float32 `json:"-"`
	ReviewsEmbedding []float32 `json:"-"`
}

// genericCategories are tags that say nothing about the kind of food.
var genericCategories = map[string]bool{
	"restaurant":        true,
	"food":              true,
	"point_of_interest": true,
	"establishment":     true,
	"store":             true,
}

// PrimaryCategory returns the first category tag that is not a generic
// placeholder, or "" when the venue has none.
func (v *Venue) PrimaryCategory() string {
	for _, c := range v.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !genericCategories[c] {
			return c
		}
	}
	return ""
}

// Normalize validates identity fields and clamps out-of-range aggregates.
func (v *Venue) Normalize() error {
	v.ID = strings.TrimSpace(v.ID)
	v.Name = strings.TrimSpace(v.Name)
	if v.ID == "" {
		return errors.Join(ErrInvalidVenue, errors.New("missing id"))
	}
	if v.Name == "" {
		return errors.Join(ErrInvalidVenue, errors.New("missing name for "+v.ID))
	}
	if v.Location != nil && !v.Location.Valid() {
		v.Location = nil
	}
	if v.Rating < 0 {
		v.Rating = 0
	}
	if v.Rating > 5 {
		v.Rating = 5
	}
	if v.ReviewCount < 0 {
		v.ReviewCount = 0
	}
	if v.PriceLevel < 1 || v.PriceLevel > 4 {
		v.PriceLevel = 0
	}
	return nil
}
