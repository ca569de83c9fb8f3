package server

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/chatlog"
	"github.com/onnwee/peak-tender/peaks"
)

// optionsFromQuery applies per-request overrides to the server's analysis
// defaults: ?window=, ?peaks=, ?policy=, ?lookback=.
func (h *Handlers) optionsFromQuery(r *http.Request) (analysis.Options, error) {
	opts := h.opts
	opts.WindowSeconds = parseFloat64Query(r, "window", opts.WindowSeconds)
	opts.NumPeaks = parseIntQuery(r, "peaks", opts.NumPeaks)
	opts.LookbackSeconds = parseFloat64Query(r, "lookback", opts.LookbackSeconds)
	if p := r.URL.Query().Get("policy"); p != "" {
		policy, err := analysis.ParsePolicy(p)
		if err != nil {
			return opts, err
		}
		opts.Policy = policy
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// handleVodPeaks returns the stored peak records for a VOD in chronological order.
func (h *Handlers) handleVodPeaks(w http.ResponseWriter, r *http.Request, vodID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stored, err := peaks.LoadPeaks(r.Context(), h.db, vodID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	type peakResp struct {
		Before analysis.Moment `json:"before"`
		Top    analysis.Moment `json:"top"`
		Slope  float64         `json:"slope"`
		Policy string          `json:"policy"`
	}
	list := make([]peakResp, 0, len(stored))
	for _, p := range stored {
		list = append(list, peakResp{
			Before: p.Record.Before,
			Top:    p.Record.Top,
			Slope:  p.Slope,
			Policy: p.Policy,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// handleVodActivity runs an on-the-fly analysis and returns the full window
// and slope series, for charting the activity timeline.
func (h *Handlers) handleVodActivity(w http.ResponseWriter, r *http.Request, vodID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	opts, err := h.optionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msgs, err := chatlog.LoadMessages(r.Context(), h.db, vodID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	in := make([]analysis.Message, len(msgs))
	for i, m := range msgs {
		in[i] = analysis.Message{Timestamp: m.TimeInSeconds}
	}
	res, err := analysis.Analyze(in, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	windows := make([]analysis.Moment, 0, len(res.Windows))
	for _, win := range res.Windows {
		windows = append(windows, analysis.Moment{Time: win.Start, Count: win.Count})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"vod_id":  vodID,
		"windows": windows,
		"slopes":  res.Slopes,
		"records": res.Records,
		"skipped": res.Skipped,
	})
}

// handleVodAnalyze triggers a fresh analysis and replaces the stored peaks.
func (h *Handlers) handleVodAnalyze(w http.ResponseWriter, r *http.Request, vodID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	opts, err := h.optionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := peaks.AnalyzeVOD(r.Context(), h.db, vodID, opts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stored, err := peaks.LoadPeaks(r.Context(), h.db, vodID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"vod_id": vodID, "peaks": len(stored)})
}
