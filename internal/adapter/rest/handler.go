package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/usecase"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

// Reporter accepts client-reported device fixes.
type Reporter interface {
	Report(fix domain.DeviceLocation) error
}

type Handler struct {
	listings      *usecase.ListingUsecase
	favorites     *usecase.FavoriteUsecase
	photos        *usecase.PhotoUsecase
	tracker       *usecase.LocationTracker
	reporter      Reporter
	maxPhotoBytes int64
	logger        *logger.Logger
}

// NewHandler builds the HTTP handlers. reporter may be nil when the location
// provider does not take client reports.
func NewHandler(
	listings *usecase.ListingUsecase,
	favorites *usecase.FavoriteUsecase,
	photos *usecase.PhotoUsecase,
	tracker *usecase.LocationTracker,
	reporter Reporter,
	maxPhotoBytes int64,
	log *logger.Logger,
) *Handler {
	return &Handler{
		listings:      listings,
		favorites:     favorites,
		photos:        photos,
		tracker:       tracker,
		reporter:      reporter,
		maxPhotoBytes: maxPhotoBytes,
		logger:        log.Named("http"),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidListingData, err)
	}
	return nil
}

func (h *Handler) HandleListRanked(w http.ResponseWriter, r *http.Request) {
	filter, device, err := parseRankedQuery(r)
	if err != nil {
		writeError(w, h.logger, "HandleListRanked", err)
		return
	}
	if device == nil {
		device = h.tracker.Current()
	}

	ranked, err := h.listings.RankedListings(r.Context(), device, filter)
	if err != nil {
		writeError(w, h.logger, "HandleListRanked", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rankedResponse{
		Listings:   toRankedListings(ranked),
		Device:     device,
		Store:      h.listings.Status(),
		Categories: domain.Categories(),
	})
}

// parseRankedQuery reads the filter and an optional device fix (lat & lng).
func parseRankedQuery(r *http.Request) (domain.Filter, *domain.DeviceLocation, error) {
	q := r.URL.Query()
	ve := &domain.ValidationError{}

	filter := domain.Filter{
		Category:   domain.Category(q.Get("category")),
		Query:      q.Get("q"),
		SellerName: q.Get("seller"),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		ve.Add("category")
	}
	if v := q.Get("favorites"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			ve.Add("favorites")
		}
		filter.FavoritesOnly = b
	}
	if v := q.Get("maxKm"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil || km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
			ve.Add("maxKm")
		}
		filter.MaxDistanceKm = km
	}

	var device *domain.DeviceLocation
	lat, lng := q.Get("lat"), q.Get("lng")
	if lat != "" || lng != "" {
		device = &domain.DeviceLocation{Source: domain.SourceGPS}
		var err error
		if device.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
			ve.Add("lat")
		}
		if device.Longitude, err = strconv.ParseFloat(lng, 64); err != nil {
			ve.Add("lng")
		}
		if v := q.Get("accuracy"); v != "" {
			if device.Accuracy, err = strconv.ParseFloat(v, 64); err != nil {
				ve.Add("accuracy")
			}
		}
		if len(ve.Fields) == 0 && !device.Coordinates().Valid() {
			ve.Add("lat")
			ve.Add("lng")
		}
	}
	return filter, device, ve.Err()
}

func (h *Handler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "HandleCreateListing", err)
		return
	}
	listing, err := h.listings.PostListing(r.Context(), req.ListingInput, req.Location)
	if err != nil {
		writeError(w, h.logger, "HandleCreateListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, listing)
}

func (h *Handler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "HandleGetListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, listing)
}

func (h *Handler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "HandleUpdateListing", err)
		return
	}
	listing, err := h.listings.EditListing(r.Context(), chi.URLParam(r, "id"), req.ListingInput, req.Location)
	if err != nil {
		writeError(w, h.logger, "HandleUpdateListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, listing)
}

func (h *Handler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.DeleteListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "HandleDeleteListing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleContactSeller(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.ContactSeller(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "HandleContactSeller", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, listing)
}

// HandleUploadPhoto takes the raw image as the request body. The file name
// comes from the filename query parameter.
func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.maxPhotoBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoBytes)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, h.logger, "HandleUploadPhoto", err)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		name = "photo"
	}
	url, err := h.photos.UploadPhoto(r.Context(), chi.URLParam(r, "id"), name, data)
	if err != nil {
		writeError(w, h.logger, "HandleUploadPhoto", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, photoResponse{ImageURL: url})
}

func (h *Handler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.AddFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "HandleAddFavorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.RemoveFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "HandleRemoveFavorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetFavorites(w http.ResponseWriter, r *http.Request) {
	listings, err := h.favorites.GetFavorites(r.Context())
	if err != nil {
		writeError(w, h.logger, "HandleGetFavorites", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, listings)
}

// HandleReportLocation records a client fix and makes it current.
func (h *Handler) HandleReportLocation(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		writeJSON(w, h.logger, http.StatusConflict, errorResponse{Error: "location reports are disabled"})
		return
	}
	var fix domain.DeviceLocation
	if err := decodeJSON(r, &fix); err != nil {
		writeError(w, h.logger, "HandleReportLocation", err)
		return
	}
	if err := h.reporter.Report(fix); err != nil {
		writeError(w, h.logger, "HandleReportLocation", err)
		return
	}
	h.HandleCaptureLocation(w, r)
}

func (h *Handler) HandleCaptureLocation(w http.ResponseWriter, r *http.Request) {
	fix, err := h.tracker.Capture(r.Context())
	if err != nil {
		writeError(w, h.logger, "HandleCaptureLocation", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, fix)
}

func (h *Handler) HandleGetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, locationResponse{
		Current:   h.tracker.Current(),
		LastKnown: h.tracker.LastKnown(),
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.listings.Status())
}
