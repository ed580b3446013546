//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/geo"
)

func TestCatalogStore(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	// Haifa port area; no other test seeds here.
	origin := geo.Point{Lat: 32.8191, Lng: 34.9983}
	near := geo.Offset(origin, 300, 0)
	far := geo.Offset(origin, 5000, 0)

	SeedVenue(t, env, catalog.Venue{
		ID:          "cat-near",
		Name:        "Port Hummus",
		City:        "Haifa",
		Location:    &near,
		Rating:      4.6,
		ReviewCount: 900,
		PriceLevel:  1,
		Categories:  []string{"middle_eastern_restaurant"},
		OpeningHours: &catalog.OpeningHours{
			Periods: []catalog.Period{{Open: catalog.DayTime{Day: 3, Time: "1100"}, Close: &catalog.DayTime{Day: 3, Time: "2200"}}},
		},
		Summary:          "Warm hummus and ful by the port.",
		SummaryEmbedding: axis(0),
		ReviewsEmbedding: axis(1),
	})
	SeedVenue(t, env, catalog.Venue{
		ID:          "cat-far",
		Name:        "Carmel Grill",
		City:        "Haifa",
		Location:    &far,
		Rating:      4.1,
		ReviewCount: 15,
	})
	SeedVenue(t, env, catalog.Venue{ID: "cat-nowhere", Name: "Ghost Kitchen", City: "Haifa"})

	t.Run("bounding box", func(t *testing.T) {
		venues, err := env.Store.ListWithinBounds(ctx, geo.BoundingBoxAround(origin, 1000))
		require.NoError(t, err)
		require.Len(t, venues, 1)

		v := venues[0]
		assert.Equal(t, "cat-near", v.ID)
		require.NotNil(t, v.Location)
		assert.InDelta(t, near.Lat, v.Location.Lat, 1e-9)
		assert.Len(t, v.SummaryEmbedding, embeddingDim)
		assert.Len(t, v.ReviewsEmbedding, embeddingDim)
		assert.Equal(t, []string{"middle_eastern_restaurant"}, v.Categories)
		assert.True(t, v.OpeningHours.IsOpenAt(time.Wednesday, 12*60))
		assert.False(t, v.OpeningHours.IsOpenAt(time.Wednesday, 23*60))
	})

	t.Run("city match is case-insensitive substring", func(t *testing.T) {
		venues, err := env.Store.ListByCity(ctx, []string{"haif"})
		require.NoError(t, err)
		ids := make([]string, 0, len(venues))
		for _, v := range venues {
			ids = append(ids, v.ID)
		}
		assert.ElementsMatch(t, []string{"cat-near", "cat-far", "cat-nowhere"}, ids)
	})

	t.Run("missing coordinates and embeddings", func(t *testing.T) {
		venues, err := env.Store.ListByCity(ctx, []string{"Haifa"})
		require.NoError(t, err)
		for _, v := range venues {
			if v.ID == "cat-nowhere" {
				assert.Nil(t, v.Location)
				assert.Nil(t, v.SummaryEmbedding)
				assert.Nil(t, v.OpeningHours)
			}
		}
	})

	t.Run("list all orders by review count", func(t *testing.T) {
		venues, err := env.Store.ListAll(ctx, 5000)
		require.NoError(t, err)
		pos := map[string]int{}
		for i, v := range venues {
			pos[v.ID] = i
		}
		assert.Less(t, pos["cat-near"], pos["cat-far"])
	})

	t.Run("social scores", func(t *testing.T) {
		_, err := env.Pool.Exec(ctx, `INSERT INTO venue_social_signals (venue_id, score) VALUES ('cat-far', 0.8)`)
		require.NoError(t, err)

		scores, err := env.Store.SocialScores(ctx, []string{"cat-near", "cat-far"})
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"cat-far": 0.8}, scores)
	})
}
