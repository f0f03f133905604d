package analytics

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultSummaryWindow = 24 * time.Hour

// SummaryHandler serves GET /stats?window=6h: what the service has been
// suggesting recently.
func SummaryHandler(rc *Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		window := defaultSummaryWindow
		if v := r.URL.Query().Get("window"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				http.Error(w, "window must be a positive duration", http.StatusBadRequest)
				return
			}
			window = d
		}

		s, err := rc.Summarize(r.Context(), rc.now().Add(-window))
		if err != nil {
			logger.Error("Summarizing prediction events", zap.Error(err))
			http.Error(w, "db query error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s)
	}
}
