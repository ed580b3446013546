package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/recommender/internal/geo"
)

func TestPrimaryCategory(t *testing.T) {
	v := Venue{Categories: []string{"restaurant", " Italian ", "bar"}}
	assert.Equal(t, "italian", v.PrimaryCategory())

	v = Venue{Categories: []string{"food", "establishment"}}
	assert.Equal(t, "", v.PrimaryCategory())
}

func TestNormalize_ClampsAggregates(t *testing.T) {
	v := Venue{
		ID:          " v1 ",
		Name:        "Taizu",
		Rating:      7,
		ReviewCount: -3,
		PriceLevel:  9,
		Location:    &geo.Point{Lat: 120, Lng: 0},
	}
	require.NoError(t, v.Normalize())
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, 5.0, v.Rating)
	assert.Equal(t, 0, v.ReviewCount)
	assert.Equal(t, 0, v.PriceLevel)
	assert.Nil(t, v.Location)
}

func TestNormalize_RequiresIdentity(t *testing.T) {
	err := (&Venue{Name: "x"}).Normalize()
	assert.True(t, errors.Is(err, ErrInvalidVenue))

	err = (&Venue{ID: "x"}).Normalize()
	assert.True(t, errors.Is(err, ErrInvalidVenue))
}
