// internal/api/handler/health.go
package handler

import (
	"context"
	"net/http"
	"time"

	"chainlend-ledger/internal/util"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports whether the database answers within two seconds.
// GET /health
func Health(db Pinger, logger *util.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			respondWithError(logger, w, r, util.Storage("ping database", err))
			return
		}
		respondWithJSON(logger, w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
