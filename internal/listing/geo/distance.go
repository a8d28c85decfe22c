// Package geo holds the great-circle distance math used to rank listings.
package geo

import (
	"fmt"
	"math"

	"github.com/sinyoro/market-service/internal/listing/domain"
)

const (
	EarthRadiusKm = 6371.0

	// NearbyKm is the radius under which a listing is flagged as nearby.
	NearbyKm = 2.0
)

// DistanceKm returns the haversine distance between two points in kilometers.
// No rounding is applied.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Between returns the distance from the device to a listing location, or nil
// when either side lacks coordinates.
func Between(device *domain.DeviceLocation, loc *domain.Location) *float64 {
	if device == nil || !loc.HasCoordinates() {
		return nil
	}
	d := DistanceKm(device.Latitude, device.Longitude, loc.Coordinates.Latitude, loc.Coordinates.Longitude)
	return &d
}

// FormatDistance renders a distance rounded to one decimal place.
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.1f km away", km)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
