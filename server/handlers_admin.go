package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/peak-tender/catalog"
	"github.com/onnwee/peak-tender/config"
	"github.com/onnwee/peak-tender/twitchapi"
)

// HandleAdminChatImport triggers a chat replay import for a VOD.
// Body: {"vod_id": "..."} . The import runs in the background; the handler
// returns 202 immediately.
func (h *Handlers) HandleAdminChatImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		VodID string `json:"vod_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VodID == "" {
		http.Error(w, "invalid json: vod_id required", http.StatusBadRequest)
		return
	}
	var exists bool
	if err := h.db.QueryRowContext(r.Context(), `SELECT EXISTS(SELECT 1 FROM vods WHERE twitch_vod_id=$1)`, body.VodID).Scan(&exists); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.NotFound(w, r)
		return
	}
	// Run against the server lifecycle context, not the request context.
	go func() {
		_ = catalog.ImportChat(h.ctx, h.db, body.VodID)
	}()
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"vod_id": body.VodID, "status": "import_started"})
}

// HandleAdminCatalogSync triggers an immediate catalog sync.
func (h *Handlers) HandleAdminCatalogSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg, err := config.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if cfg.TwitchChannel == "" || cfg.TwitchClientID == "" || cfg.TwitchClientSecret == "" {
		http.Error(w, "catalog sync unavailable: missing channel or helix credentials", http.StatusServiceUnavailable)
		return
	}
	client := twitchapi.NewHelixClient(cfg.TwitchClientID, cfg.TwitchClientSecret)
	started := time.Now()
	if err := catalog.SyncCatalog(r.Context(), h.db, client, cfg.TwitchChannel, getEnvInt("CATALOG_MAX", 0), 0); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "took": time.Since(started).String()})
}
