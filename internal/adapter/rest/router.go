package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sinyoro/market-service/internal/platform/logger"
	"github.com/sinyoro/market-service/internal/platform/metrics"
)

// NewRouter mounts the API. m may be nil, which disables /metrics.
func NewRouter(h *Handler, m *metrics.MetricsManager, log *logger.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(RequestMetrics(m))
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.HandleListRanked)
			r.Post("/", h.HandleCreateListing)
			r.Get("/{id}", h.HandleGetListing)
			r.Put("/{id}", h.HandleUpdateListing)
			r.Delete("/{id}", h.HandleDeleteListing)
			r.Post("/{id}/contact", h.HandleContactSeller)
			r.Post("/{id}/photo", h.HandleUploadPhoto)
			r.Put("/{id}/favorite", h.HandleAddFavorite)
			r.Delete("/{id}/favorite", h.HandleRemoveFavorite)
		})
		r.Get("/favorites", h.HandleGetFavorites)

		r.Get("/location", h.HandleGetLocation)
		r.Post("/location", h.HandleReportLocation)
		r.Post("/location/capture", h.HandleCaptureLocation)
	})
	return r
}
