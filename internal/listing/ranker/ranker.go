// Package ranker orders listings by distance from the current device location.
package ranker

import (
	"cmp"
	"math"
	"slices"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/geo"
)

const (
	distanceUnknownText = "Distance unknown"
	locationUnknownText = "Location unknown"
)

// Ranked is a listing annotated with its distance from the device.
// DistanceKm is nil when the distance is unknown.
type Ranked struct {
	Listing    *domain.Listing
	DistanceKm *float64
}

// Nearby reports whether the listing is within geo.NearbyKm of the device.
func (r Ranked) Nearby() bool {
	return r.DistanceKm != nil && *r.DistanceKm < geo.NearbyKm
}

// DistanceText is the display label for the listing's distance column.
func (r Ranked) DistanceText() string {
	if r.DistanceKm != nil {
		return geo.FormatDistance(*r.DistanceKm)
	}
	loc := r.Listing.Location
	if place := loc.PlaceText(); place != "" {
		return place
	}
	if loc.HasCoordinates() {
		return distanceUnknownText
	}
	return locationUnknownText
}

func (r Ranked) sortKey() float64 {
	if r.DistanceKm == nil {
		return math.Inf(1)
	}
	return *r.DistanceKm
}

// Rank annotates every listing with its distance from device and returns them
// sorted ascending. Unknown distances sort after all known ones; ties keep
// their input order.
func Rank(device *domain.DeviceLocation, listings []*domain.Listing) []Ranked {
	out := make([]Ranked, 0, len(listings))
	for _, l := range listings {
		out = append(out, Ranked{Listing: l, DistanceKm: geo.Between(device, l.Location)})
	}

	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(a.sortKey(), b.sortKey())
	})
	return out
}

// Within drops entries whose known distance exceeds maxKm. Unknown distances
// are kept; maxKm <= 0 disables the limit.
func Within(ranked []Ranked, maxKm float64) []Ranked {
	if maxKm <= 0 {
		return ranked
	}
	out := ranked[:0:0]
	for _, r := range ranked {
		if r.DistanceKm != nil && *r.DistanceKm > maxKm {
			continue
		}
		out = append(out, r)
	}
	return out
}
