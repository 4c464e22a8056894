package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unilearn/unilearn-portal/pkg/gradesync"
)

// POST /attempts/{attemptID}/gradesync
// Pushes the completed grade to the institution's records system.
func SyncGradeHandler(syncer *gradesync.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		if attemptID == "" {
			http.Error(w, "attemptID required", http.StatusBadRequest)
			return
		}
		if syncer == nil {
			http.Error(w, "records sync not configured", http.StatusServiceUnavailable)
			return
		}
		if err := syncer.SyncAttempt(r.Context(), attemptID); err != nil {
			http.Error(w, "sync: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
