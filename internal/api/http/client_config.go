package http

import "net/http"

// GET /client-config
// Coordination defaults the exam UI reads before opening an attempt
// session: autosave debounce and the timer tick.
func ClientConfigHandler(autosaveDebounceMS int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{
			"autosave_debounce_ms": autosaveDebounceMS,
			"timer_tick_ms":        1000,
		})
	}
}
