// Package catalog discovers a channel's archived VODs via Helix and keeps
// the local vods table in sync, so the analysis job has fresh inputs.
package catalog

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/onnwee/peak-tender/config"
	"github.com/onnwee/peak-tender/db"
	"github.com/onnwee/peak-tender/twitchapi"
)

// VOD is a single archived broadcast as tracked locally.
type VOD struct {
	ID       string
	Title    string
	Date     time.Time
	Duration int // seconds
}

// FetchChannelVODs pages through the channel's archive VODs up to maxCount or maxAge.
func FetchChannelVODs(ctx context.Context, dbx *sql.DB, client *twitchapi.HelixClient, channel string, maxCount int, maxAge time.Duration) ([]VOD, error) {
	if channel == "" {
		return nil, nil
	}
	userID, err := client.GetUserID(ctx, channel)
	if err != nil {
		return nil, err
	}
	cutoff := time.Time{}
	if maxAge > 0 {
		cutoff = time.Now().Add(-maxAge)
	}
	pageSize := 100
	if maxCount > 0 && maxCount < pageSize {
		pageSize = maxCount
	}
	after := ""
	if maxAge == 0 {
		after, _ = db.GetKV(ctx, dbx, "catalog_after")
	}
	collected := []VOD{}
	for maxCount == 0 || len(collected) < maxCount {
		videos, cursor, err := client.ListVideos(ctx, userID, after, pageSize)
		if err != nil {
			return nil, err
		}
		if len(videos) == 0 {
			break
		}
		for _, v := range videos {
			created, _ := time.Parse(time.RFC3339, v.CreatedAt)
			dur, err := twitchapi.ParseTwitchDuration(v.Duration)
			if err != nil {
				slog.Debug("unparseable vod duration", slog.String("vod_id", v.ID), slog.Any("err", err))
			}
			vodObj := VOD{ID: v.ID, Title: v.Title, Date: created, Duration: dur}
			if !cutoff.IsZero() && vodObj.Date.Before(cutoff) {
				return collected, nil
			}
			collected = append(collected, vodObj)
			if maxCount > 0 && len(collected) >= maxCount {
				break
			}
		}
		if cursor == "" || (maxCount > 0 && len(collected) >= maxCount) {
			break
		}
		after = cursor
		if maxAge == 0 {
			_ = db.SetKV(ctx, dbx, "catalog_after", after)
		}
		select {
		case <-ctx.Done():
			return collected, ctx.Err()
		case <-time.After(1200 * time.Millisecond):
		}
	}
	return collected, nil
}

// SyncCatalog inserts newly discovered VODs and refreshes stale metadata.
func SyncCatalog(ctx context.Context, dbx *sql.DB, client *twitchapi.HelixClient, channel string, maxCount int, maxAge time.Duration) error {
	vods, err := FetchChannelVODs(ctx, dbx, client, channel, maxCount, maxAge)
	if err != nil {
		return err
	}
	for _, v := range vods {
		_, _ = dbx.ExecContext(ctx, `INSERT INTO vods (twitch_vod_id, title, date, duration_seconds, created_at)
			VALUES ($1,$2,$3,$4,NOW()) ON CONFLICT (twitch_vod_id) DO NOTHING`, v.ID, v.Title, v.Date, v.Duration)
		_, _ = dbx.ExecContext(ctx, `UPDATE vods SET title=COALESCE(NULLIF(title,''), $1),
			duration_seconds=CASE WHEN COALESCE(duration_seconds,0)=0 THEN $2 ELSE duration_seconds END,
			updated_at=NOW() WHERE twitch_vod_id=$3`, v.Title, v.Duration, v.ID)
	}
	slog.Info("catalog sync inserted/refreshed", slog.Int("count", len(vods)))
	return nil
}

// importPendingChat pulls chat replays for up to limit VODs that don't have
// their chat imported yet, newest first. Live recordings are excluded by
// their synthetic id prefix.
func importPendingChat(ctx context.Context, dbx *sql.DB, limit int) {
	rows, err := dbx.QueryContext(ctx, `SELECT twitch_vod_id FROM vods
		WHERE COALESCE(chat_imported,false)=false AND twitch_vod_id NOT LIKE 'live-%'
		ORDER BY date DESC LIMIT $1`, limit)
	if err != nil {
		slog.Warn("select pending imports", slog.Any("err", err))
		return
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	_ = rows.Close()
	for _, id := range ids {
		if err := ImportChat(ctx, dbx, id); err != nil {
			slog.Warn("chat import", slog.String("vod_id", id), slog.Any("err", err))
		}
	}
}

// StartCatalogSyncJob periodically syncs the VOD catalog and imports chat
// replays for newly discovered VODs. Blocks until ctx is done.
func StartCatalogSyncJob(ctx context.Context, dbx *sql.DB, cfg config.Config) {
	if cfg.TwitchChannel == "" || cfg.TwitchClientID == "" || cfg.TwitchClientSecret == "" {
		slog.Info("catalog sync disabled: missing channel or helix credentials")
		return
	}
	interval := 6 * time.Hour
	if v := os.Getenv("CATALOG_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
	maxCount := 0
	if s := os.Getenv("CATALOG_MAX"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			maxCount = n
		}
	}
	maxAge := time.Duration(0)
	if s := os.Getenv("CATALOG_MAX_AGE_DAYS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			maxAge = time.Duration(n) * 24 * time.Hour
		}
	}
	client := twitchapi.NewHelixClient(cfg.TwitchClientID, cfg.TwitchClientSecret)
	slog.Info("catalog sync job starting", slog.Duration("interval", interval), slog.Int("max", maxCount), slog.Duration("max_age", maxAge))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	importBatch := 1
	if s := os.Getenv("CHAT_IMPORT_BATCH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			importBatch = n
		}
	}
	runOnce := func() {
		if err := SyncCatalog(ctx, dbx, client, cfg.TwitchChannel, maxCount, maxAge); err != nil {
			slog.Warn("catalog sync", slog.Any("err", err))
			return
		}
		importPendingChat(ctx, dbx, importBatch)
		_ = db.SetKV(ctx, dbx, "job_catalog_sync_last", time.Now().UTC().Format(time.RFC3339))
	}
	runOnce()
	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog sync job stopped")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
