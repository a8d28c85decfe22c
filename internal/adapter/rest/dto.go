package rest

import (
	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/ranker"
	"github.com/sinyoro/market-service/internal/listing/usecase"
)

type listingRequest struct {
	usecase.ListingInput
	Location *domain.Location `json:"location"`
}

type rankedListing struct {
	*domain.Listing
	DistanceKm   *float64 `json:"distanceKm"`
	DistanceText string   `json:"distanceText"`
	Nearby       bool     `json:"nearby"`
}

type rankedResponse struct {
	Listings   []rankedListing        `json:"listings"`
	Device     *domain.DeviceLocation `json:"device"`
	Store      domain.StoreStatus     `json:"store"`
	Categories []domain.Category      `json:"categories"`
}

func toRankedListings(ranked []ranker.Ranked) []rankedListing {
	out := make([]rankedListing, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, rankedListing{
			Listing:      r.Listing,
			DistanceKm:   r.DistanceKm,
			DistanceText: r.DistanceText(),
			Nearby:       r.Nearby(),
		})
	}
	return out
}

type locationResponse struct {
	Current   *domain.DeviceLocation `json:"current"`
	LastKnown *domain.DeviceLocation `json:"lastKnown"`
}

type photoResponse struct {
	ImageURL string `json:"imageUrl"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
