package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// LoadMessages reads all recorded messages for a VOD ordered by relative
// timestamp, the shape the analysis pipeline consumes.
func LoadMessages(ctx context.Context, db *sql.DB, vodID string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `SELECT rel_timestamp, COALESCE(username,''), COALESCE(message,'')
		FROM chat_messages WHERE vod_id=$1 ORDER BY rel_timestamp ASC`, vodID)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.TimeInSeconds, &m.Username, &m.Text); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages returns the number of recorded messages for a VOD.
func CountMessages(ctx context.Context, db *sql.DB, vodID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE vod_id=$1`, vodID).Scan(&n)
	return n, err
}
