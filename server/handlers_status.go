package server

import (
	"encoding/json"
	"net/http"
	"os"
)

// HandleStatus returns a lightweight status summary: queue depth, analysis
// counts, job heartbeats and the effective analysis configuration.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	var awaitingChat, pending, errored, analyzed int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vods WHERE COALESCE(chat_imported,false)=false`).Scan(&awaitingChat)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vods WHERE COALESCE(chat_imported,false)=true AND COALESCE(analyzed,false)=false`).Scan(&pending)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vods WHERE analysis_error IS NOT NULL AND analysis_error!=''`).Scan(&errored)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vods WHERE COALESCE(analyzed,false)=true`).Scan(&analyzed)
	resp["awaiting_chat"] = awaitingChat
	resp["pending"] = pending
	resp["errored"] = errored
	resp["analyzed"] = analyzed

	var totalPeaks int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_peaks`).Scan(&totalPeaks)
	resp["total_peaks"] = totalPeaks

	// Effective analysis configuration
	resp["analysis_config"] = map[string]any{
		"window_seconds":   h.opts.WindowSeconds,
		"num_peaks":        h.opts.NumPeaks,
		"policy":           h.opts.Policy.String(),
		"lookback_seconds": h.opts.LookbackSeconds,
	}

	// Job interval knobs, if overridden
	if v := os.Getenv("PEAK_ANALYZE_INTERVAL"); v != "" {
		resp["analyze_interval"] = v
	}
	if v := os.Getenv("CATALOG_SYNC_INTERVAL"); v != "" {
		resp["catalog_sync_interval"] = v
	}

	// Last job heartbeats
	for key, field := range map[string]string{
		"job_peak_analyze_last": "last_analyze_run",
		"job_catalog_sync_last": "last_catalog_sync",
	} {
		var last string
		_ = h.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&last)
		if last != "" {
			resp[field] = last
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
