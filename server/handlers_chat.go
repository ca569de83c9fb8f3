package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// handleChatJSON returns recorded chat messages for a VOD, paged by relative
// timestamp so a player can fetch the window around its playhead.
func (h *Handlers) handleChatJSON(w http.ResponseWriter, r *http.Request, vodID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from := parseFloat64Query(r, "from", 0)
	limit := parseIntQuery(r, "limit", 500)
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	rows, err := h.db.QueryContext(r.Context(), `
        SELECT rel_timestamp, COALESCE(username,''), COALESCE(message,'')
        FROM chat_messages
        WHERE vod_id=$1 AND rel_timestamp >= $2
        ORDER BY rel_timestamp ASC
        LIMIT $3
    `, vodID, from, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	type msg struct {
		Time     float64 `json:"time_in_seconds"`
		Username string  `json:"username"`
		Message  string  `json:"message"`
	}
	list := make([]msg, 0)
	for rows.Next() {
		var m msg
		if err := rows.Scan(&m.Time, &m.Username, &m.Message); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		list = append(list, m)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
