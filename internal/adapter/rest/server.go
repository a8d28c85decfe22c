package rest

import (
	"net/http"

	"github.com/sinyoro/market-service/internal/config"
)

func NewServer(cfg *config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
