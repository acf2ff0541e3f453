package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/utils"
)

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Ready answers 503 while any checker fails. A nil checker (memory
// store) is always ready.
func Ready(log zerolog.Logger, checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ready(r.Context()); err != nil {
				log.Warn().Err(err).Msg("readiness check failed")
				utils.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
