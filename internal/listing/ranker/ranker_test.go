package ranker

import (
	"testing"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(id string, lat, lon float64) *domain.Listing {
	return &domain.Listing{
		ID:    id,
		Title: id,
		Location: &domain.Location{
			Coordinates: &domain.Coordinates{Latitude: lat, Longitude: lon},
			Source:      domain.SourceGPS,
		},
	}
}

func ids(ranked []Ranked) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Listing.ID)
	}
	return out
}

func origin() *domain.DeviceLocation {
	return &domain.DeviceLocation{Latitude: 0, Longitude: 0, Source: domain.SourceGPS}
}

func TestRank_EquatorScenario(t *testing.T) {
	b := at("B", 0, 1)
	a := at("A", 0, 0)

	ranked := Rank(origin(), []*domain.Listing{b, a})

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"A", "B"}, ids(ranked))
	require.NotNil(t, ranked[0].DistanceKm)
	assert.Equal(t, 0.0, *ranked[0].DistanceKm)
	require.NotNil(t, ranked[1].DistanceKm)
	assert.InDelta(t, 111.2, *ranked[1].DistanceKm, 0.05)
	assert.Equal(t, "111.2 km away", ranked[1].DistanceText())
}

func TestRank_UnknownSortsLast(t *testing.T) {
	unlocated := &domain.Listing{ID: "maize", Title: "Maize"}
	landmark := &domain.Listing{ID: "goat", Location: &domain.Location{Landmark: "Chief's camp"}}
	far := at("far", 1, 1)
	near := at("near", 0, 0.01)

	ranked := Rank(origin(), []*domain.Listing{unlocated, far, landmark, near})

	assert.Equal(t, []string{"near", "far", "maize", "goat"}, ids(ranked))
	assert.Nil(t, ranked[2].DistanceKm)
	assert.Nil(t, ranked[3].DistanceKm)
}

func TestRank_NoDeviceLocation(t *testing.T) {
	first := at("first", 0, 1)
	second := at("second", 0, 0)

	ranked := Rank(nil, []*domain.Listing{first, second})

	assert.Equal(t, []string{"first", "second"}, ids(ranked))
	for _, r := range ranked {
		assert.Nil(t, r.DistanceKm)
		assert.Equal(t, "Distance unknown", r.DistanceText())
	}
}

func TestRank_StableForEqualDistance(t *testing.T) {
	x := at("x", 0, 1)
	y := at("y", 0, -1)
	z := at("z", 1, 0)

	ranked := Rank(origin(), []*domain.Listing{x, y, z})

	assert.Equal(t, []string{"x", "y", "z"}, ids(ranked))
}

func TestRank_ZeroDistanceIsNotUnknown(t *testing.T) {
	unknown := &domain.Listing{ID: "unknown"}
	zero := at("zero", 0, 0)

	ranked := Rank(origin(), []*domain.Listing{unknown, zero})

	assert.Equal(t, []string{"zero", "unknown"}, ids(ranked))
}

func TestRanked_DistanceText(t *testing.T) {
	assert.Equal(t, "Location unknown", Ranked{Listing: &domain.Listing{}}.DistanceText())

	place := Ranked{Listing: &domain.Listing{Location: &domain.Location{Landmark: "Borehole", AreaName: "Lessos"}}}
	assert.Equal(t, "Borehole, Lessos", place.DistanceText())

	area := Ranked{Listing: &domain.Listing{Location: &domain.Location{AreaName: "Lessos"}}}
	assert.Equal(t, "Lessos", area.DistanceText())
}

func TestRanked_Nearby(t *testing.T) {
	one, three := 1.0, 3.0
	assert.True(t, Ranked{DistanceKm: &one}.Nearby())
	assert.False(t, Ranked{DistanceKm: &three}.Nearby())
	assert.False(t, Ranked{}.Nearby())
}

func TestWithin(t *testing.T) {
	ranked := Rank(origin(), []*domain.Listing{at("near", 0, 0.01), at("far", 0, 2), {ID: "unknown"}})

	assert.Equal(t, []string{"near", "unknown"}, ids(Within(ranked, 50)))
	assert.Equal(t, []string{"near", "far", "unknown"}, ids(Within(ranked, 0)))
}
