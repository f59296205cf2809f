// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chainlend-ledger/internal/api/types"
	"chainlend-ledger/internal/util"
)

// DefaultTimeout bounds every request when the router is built without an explicit timeout.
const DefaultTimeout = 15 * time.Second

// Pagination defaults for list endpoints.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

func respondWithJSON(logger *util.Logger, w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case util.IsError(err, util.ErrValidation):
		return http.StatusBadRequest
	case util.IsError(err, util.ErrNotFound):
		return http.StatusNotFound
	case util.IsError(err, util.ErrConflict):
		return http.StatusConflict
	case util.IsError(err, util.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(logger *util.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
	}
	respondWithJSON(logger, w, status, types.ErrorResponse{Error: util.Kind(err), Message: message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return util.Invalid("malformed request body: %v", err)
	}
	return nil
}

// pageParams reads limit and offset. Missing or malformed values fall back to the defaults.
func pageParams(r *http.Request) (int, int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
