package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/forkful/recommender/internal/geo"
)

// Store defines the read operations the recommendation pipeline needs from
// the venue catalog.
type Store interface {
	ListWithinBounds(ctx context.Context, box geo.BoundingBox) ([]Venue, error)
	ListByCity(ctx context.Context, cityNames []string) ([]Venue, error)
	ListAll(ctx context.Context, limit int) ([]Venue, error)
}

// PostgresStore implements Store using pgx + pgvector.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new catalog store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const venueColumns = `id, name, address, city, lat, lng, phone, website, rating, review_count,
	price_level, categories, opening_hours, photos, summary, summary_embedding, reviews_embedding`

func (s *PostgresStore) ListWithinBounds(ctx context.Context, box geo.BoundingBox) ([]Venue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+`
		 FROM venues
		 WHERE lat BETWEEN $1 AND $2
		   AND lng BETWEEN $3 AND $4`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, fmt.Errorf("querying venues within bounds: %w", err)
	}
	return collectVenues(rows)
}

func (s *PostgresStore) ListByCity(ctx context.Context, cityNames []string) ([]Venue, error) {
	patterns := make([]string, 0, len(cityNames))
	for _, name := range cityNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		patterns = append(patterns, "%"+escapeLike(name)+"%")
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+`
		 FROM venues
		 WHERE city ILIKE ANY($1)`,
		patterns,
	)
	if err != nil {
		return nil, fmt.Errorf("querying venues by city: %w", err)
	}
	return collectVenues(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context, limit int) ([]Venue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+`
		 FROM venues
		 ORDER BY review_count DESC NULLS LAST, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying all venues: %w", err)
	}
	return collectVenues(rows)
}

// SocialScores returns the friend-visit score in [0,1] for each venue id
// that has one. Venues without a row are absent from the map.
func (s *PostgresStore) SocialScores(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT venue_id, score FROM venue_social_signals WHERE venue_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("querying social signals: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64, len(ids))
	for rows.Next() {
		var (
			id    string
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scanning social signal: %w", err)
		}
		scores[id] = score
	}
	return scores, rows.Err()
}

// venueRow mirrors the nullable columns of the venues table.
type venueRow struct {
	ID               string
	Name             string
	Address          *string
	City             *string
	Lat              *float64
	Lng              *float64
	Phone            *string
	Website          *string
	Rating           *float64
	ReviewCount      *int32
	PriceLevel       *int32
	Categories       []string
	OpeningHours     []byte
	Photos           []string
	Summary          *string
	SummaryEmbedding *pgvector.Vector
	ReviewsEmbedding *pgvector.Vector
}

func collectVenues(rows pgx.Rows) ([]Venue, error) {
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		var r venueRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Address, &r.City, &r.Lat, &r.Lng, &r.Phone, &r.Website,
			&r.Rating, &r.ReviewCount, &r.PriceLevel, &r.Categories, &r.OpeningHours,
			&r.Photos, &r.Summary, &r.SummaryEmbedding, &r.ReviewsEmbedding,
		); err != nil {
			return nil, fmt.Errorf("scanning venue: %w", err)
		}

		v, err := r.toVenue()
		if err != nil {
			slog.Warn("catalog: skipping malformed venue", "error", err, "id", r.ID)
			continue
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (r venueRow) toVenue() (Venue, error) {
	v := Venue{
		ID:          r.ID,
		Name:        r.Name,
		Address:     deref(r.Address),
		City:        deref(r.City),
		Phone:       deref(r.Phone),
		Website:     deref(r.Website),
		Categories:  r.Categories,
		Photos:      r.Photos,
		Summary:     deref(r.Summary),
		Rating:      derefFloat(r.Rating),
		ReviewCount: int(derefInt(r.ReviewCount)),
		PriceLevel:  int(derefInt(r.PriceLevel)),
	}
	if r.Lat != nil && r.Lng != nil {
		v.Location = &geo.Point{Lat: *r.Lat, Lng: *r.Lng}
	}
	if r.SummaryEmbedding != nil {
		v.SummaryEmbedding = r.SummaryEmbedding.Slice()
	}
	if r.ReviewsEmbedding != nil {
		v.ReviewsEmbedding = r.ReviewsEmbedding.Slice()
	}

	hours, err := ParseOpeningHours(r.OpeningHours)
	if err != nil {
		// Bad hours data is treated like missing hours rather than dropping the venue.
		slog.Debug("catalog: ignoring unparseable opening hours", "error", err, "id", r.ID)
	}
	v.OpeningHours = hours

	if err := v.Normalize(); err != nil {
		return Venue{}, err
	}
	return v, nil
}

// ParseOpeningHours decodes the opening_hours JSONB document. It returns nil
// for empty input.
func ParseOpeningHours(data []byte) (*OpeningHours, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var h OpeningHours
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decoding opening hours: %w", err)
	}
	if len(h.Periods) == 0 && len(h.WeekdayText) == 0 {
		return nil, nil
	}
	return &h, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}
