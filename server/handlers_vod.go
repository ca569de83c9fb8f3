package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HandleVodsList returns a paginated list of VODs.
func (h *Handlers) HandleVodsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Basic pagination: ?limit=50&offset=0
	limit := parseIntQuery(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := parseIntQuery(r, "offset", 0)
	rows, err := h.db.QueryContext(r.Context(), `
        SELECT twitch_vod_id,
               COALESCE(title, ''),
               COALESCE(date, to_timestamp(0)),
               COALESCE(duration_seconds, 0),
               COALESCE(chat_imported, FALSE),
               COALESCE(analyzed, FALSE)
        FROM vods
        ORDER BY COALESCE(date, to_timestamp(0)) DESC
        LIMIT $1 OFFSET $2
    `, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	type vod struct {
		Date         time.Time `json:"date"`
		ID           string    `json:"id"`
		Title        string    `json:"title"`
		Duration     int       `json:"duration_seconds"`
		ChatImported bool      `json:"chat_imported"`
		Analyzed     bool      `json:"analyzed"`
	}
	list := make([]vod, 0)
	for rows.Next() {
		var v vod
		if err := rows.Scan(&v.ID, &v.Title, &v.Date, &v.Duration, &v.ChatImported, &v.Analyzed); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		list = append(list, v)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// HandleVodsDispatcher routes requests under /vods/{id}/* to appropriate sub-handlers.
func (h *Handlers) HandleVodsDispatcher(w http.ResponseWriter, r *http.Request) {
	// crude routing
	path := strings.TrimPrefix(r.URL.Path, "/vods/")
	parts := strings.Split(path, "/")
	vodID := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	switch {
	case vodID == "" || vodID == "/":
		http.NotFound(w, r)
	case tail == "":
		h.handleVodDetail(w, r, vodID)
	case tail == "chat":
		h.handleChatJSON(w, r, vodID)
	case tail == "peaks":
		h.handleVodPeaks(w, r, vodID)
	case tail == "activity":
		h.handleVodActivity(w, r, vodID)
	case tail == "analyze":
		h.handleVodAnalyze(w, r, vodID)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleVodDetail(w http.ResponseWriter, r *http.Request, vodID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	row := h.db.QueryRowContext(r.Context(), `
        SELECT twitch_vod_id,
               COALESCE(title, ''),
               COALESCE(date, to_timestamp(0)),
               COALESCE(duration_seconds, 0),
               COALESCE(chat_imported, FALSE),
               COALESCE(analyzed, FALSE),
               COALESCE(analysis_error, '')
    FROM vods WHERE twitch_vod_id=$1
    `, vodID)
	type vod struct {
		Date          time.Time `json:"date"`
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		AnalysisError string    `json:"analysis_error,omitempty"`
		Duration      int       `json:"duration_seconds"`
		ChatImported  bool      `json:"chat_imported"`
		Analyzed      bool      `json:"analyzed"`
		ChatMessages  int       `json:"chat_messages"`
		PeakCount     int       `json:"peak_count"`
	}
	var v vod
	if err := row.Scan(&v.ID, &v.Title, &v.Date, &v.Duration, &v.ChatImported, &v.Analyzed, &v.AnalysisError); err != nil {
		if err == sql.ErrNoRows {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM chat_messages WHERE vod_id=$1`, vodID).Scan(&v.ChatMessages)
	_ = h.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM chat_peaks WHERE vod_id=$1`, vodID).Scan(&v.PeakCount)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
