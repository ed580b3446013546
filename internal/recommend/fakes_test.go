package recommend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/geo"
)

var telAviv = geo.Point{Lat: 32.08, Lng: 34.78}

type fakeStore struct {
	venues []catalog.Venue
	err    error

	boxes  []geo.BoundingBox
	cities [][]string
	limits []int
}

func (s *fakeStore) ListWithinBounds(ctx context.Context, box geo.BoundingBox) ([]catalog.Venue, error) {
	s.boxes = append(s.boxes, box)
	if err := s.fail(ctx); err != nil {
		return nil, err
	}
	var out []catalog.Venue
	for _, v := range s.venues {
		// Rows without coordinates cannot match a bbox query.
		if v.Location != nil && box.Contains(*v.Location) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByCity(ctx context.Context, names []string) ([]catalog.Venue, error) {
	s.cities = append(s.cities, names)
	if err := s.fail(ctx); err != nil {
		return nil, err
	}
	var out []catalog.Venue
	for _, v := range s.venues {
		for _, n := range names {
			if strings.Contains(strings.ToLower(v.City), strings.ToLower(n)) {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(ctx context.Context, limit int) ([]catalog.Venue, error) {
	s.limits = append(s.limits, limit)
	if err := s.fail(ctx); err != nil {
		return nil, err
	}
	if limit > 0 && len(s.venues) > limit {
		return s.venues[:limit], nil
	}
	return s.venues, nil
}

func (s *fakeStore) fail(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	delay time.Duration
	texts []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

// fakeCompleter answers extraction and selection prompts separately so one
// fake can drive a whole pipeline run.
type fakeCompleter struct {
	mu         sync.Mutex
	extraction string
	selection  string
	extractErr error
	selectErr  error
	prompts    []string
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string, _ float32, _ int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if strings.Contains(prompt, "extract restaurant preferences") {
		return c.extraction, c.extractErr
	}
	return c.selection, c.selectErr
}

type fakeSocial struct {
	scores map[string]float64
	err    error
}

func (s *fakeSocial) SocialScores(_ context.Context, ids []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]float64{}
	for _, id := range ids {
		if v, ok := s.scores[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// venueAt places a venue north of the Tel Aviv test origin.
func venueAt(id string, northMeters float64, categories ...string) catalog.Venue {
	p := geo.Offset(telAviv, northMeters, 0)
	return catalog.Venue{
		ID:          id,
		Name:        "Venue " + id,
		City:        "Tel Aviv-Yafo",
		Location:    &p,
		Rating:      4.2,
		ReviewCount: 120,
		Categories:  categories,
	}
}

// wednesdayAt returns a Wednesday in Jerusalem time at hh:mm.
func wednesdayAt(hh, mm int) time.Time {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		loc = time.FixedZone("IST", 3*60*60)
	}
	// 2026-10-14 is a Wednesday.
	return time.Date(2026, 10, 14, hh, mm, 0, 0, loc)
}

func userSays(text string) []ChatMessage {
	return []ChatMessage{{Role: "user", Content: text}}
}

func intPtr(v int) *int { return &v }
