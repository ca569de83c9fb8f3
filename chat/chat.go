package chat

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/peak-tender/config"
	"github.com/onnwee/peak-tender/telemetry"
)

// StartTwitchChatRecorder records chat for a given VOD, with VOD ID and VOD
// start time so relative timestamps line up with the eventual replay.
// Blocks until ctx is cancelled.
func StartTwitchChatRecorder(ctx context.Context, db *sql.DB, cfg config.Config, vodID string, vodStart time.Time) {
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("twitch creds not set; skipping chat recorder", slog.Any("reason", err))
		return
	}
	// chat_messages.vod_id references vods, so make sure the row exists before
	// the first message arrives (live recordings use a synthetic id).
	if _, err := db.ExecContext(ctx, `INSERT INTO vods (twitch_vod_id, title, date)
		VALUES ($1,$2,$3) ON CONFLICT (twitch_vod_id) DO NOTHING`,
		vodID, "live: "+cfg.TwitchChannel, vodStart); err != nil {
		slog.Error("failed to register recording vod", slog.Any("err", err))
		return
	}

	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		absTime := time.Now().UTC()
		relTime := absTime.Sub(vodStart).Seconds()
		if _, err := db.ExecContext(ctx, `INSERT INTO chat_messages (vod_id, username, message, abs_timestamp, rel_timestamp, badges, emotes, color)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			vodID, msg.User.Name, msg.Message, absTime, relTime, formatBadges(msg.User.Badges), formatEmotes(msg.Emotes), msg.User.Color); err != nil {
			slog.Error("failed to insert chat message", slog.Any("err", err))
			return
		}
		if telemetry.MessagesRecorded != nil {
			telemetry.MessagesRecorded.Inc()
		}
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	client.Join(cfg.TwitchChannel)
	slog.Info("chat recorder connecting", slog.String("channel", cfg.TwitchChannel), slog.String("vod_id", vodID))
	if err := client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}

func formatBadges(badges map[string]int) string {
	if len(badges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(badges))
	for k, v := range badges {
		parts = append(parts, fmt.Sprintf("%s:%d", k, v))
	}
	return strings.Join(parts, ",")
}

func formatEmotes(emotes []*twitch.Emote) string {
	if len(emotes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(emotes))
	for _, e := range emotes {
		parts = append(parts, e.Name)
	}
	return strings.Join(parts, ",")
}
