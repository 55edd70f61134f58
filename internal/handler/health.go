package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Version is reported by the status endpoint.
const Version = "0.1.0"

// Pinger reports whether a dependency is reachable. *database.DB satisfies it.
type Pinger interface {
	Health(ctx context.Context) error
}

// healthHandler reports liveness, and database reachability when db is set.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				zap.L().Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// statusHandler describes the running service.
func statusHandler(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":     "ecoroute",
			"version":     Version,
			"environment": environment,
			"status":      "operational",
		})
	}
}
