package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("writeJSON: failed to write response body", zap.Int("status", status), zap.Error(err))
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	var (
		ve      *domain.ValidationError
		tooBig  *http.MaxBytesError
		status  = http.StatusInternalServerError
		payload = errorResponse{Error: "internal error"}
	)

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		payload = errorResponse{Error: ve.Error(), Fields: ve.Fields}
	case errors.Is(err, domain.ErrInvalidListingData):
		status = http.StatusBadRequest
		payload.Error = err.Error()
	case errors.As(err, &tooBig):
		status = http.StatusRequestEntityTooLarge
		payload.Error = "request body too large"
	case errors.Is(err, domain.ErrListingNotFound):
		status = http.StatusNotFound
		payload.Error = err.Error()
	case errors.Is(err, domain.ErrDuplicateID):
		status = http.StatusConflict
		payload.Error = err.Error()
	case errors.Is(err, domain.ErrLocationUnavailable), errors.Is(err, domain.ErrPersistenceUnavailable):
		status = http.StatusServiceUnavailable
		payload.Error = err.Error()
	}

	if status == http.StatusInternalServerError {
		log.Error(op+": request failed", zap.Error(err))
	} else {
		log.Debug(op+": request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, log, status, payload)
}
