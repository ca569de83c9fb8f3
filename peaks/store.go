// Package peaks persists analysis results and runs the background job that
// analyzes VODs whose chat has been imported or recorded.
package peaks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/onnwee/peak-tender/analysis"
)

// StoredPeak is a persisted peak record with its ranking slope and policy.
type StoredPeak struct {
	Policy string              `json:"policy"`
	Slope  float64             `json:"slope"`
	Record analysis.PeakRecord `json:"record"`
}

// slopeFor returns the slope that ranked the window starting at topTime, or 0
// when the window cannot be located (degenerate single-window results).
func slopeFor(res *analysis.Result, topTime float64) float64 {
	for _, w := range res.Windows {
		if w.Start == topTime && w.Index > 0 && w.Index-1 < len(res.Slopes) {
			return res.Slopes[w.Index-1]
		}
	}
	return 0
}

// ReplacePeaks atomically swaps the stored peaks for a VOD with the records
// from a fresh analysis run.
func ReplacePeaks(ctx context.Context, dbx *sql.DB, vodID string, policy analysis.Policy, res *analysis.Result) error {
	tx, err := dbx.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin peaks tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("peaks tx rollback", slog.Any("err", err))
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_peaks WHERE vod_id=$1`, vodID); err != nil {
		return fmt.Errorf("delete stale peaks: %w", err)
	}
	for _, r := range res.Records {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_peaks (vod_id, policy, slope, before_time, before_count, top_time, top_count)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			vodID, policy.String(), slopeFor(res, r.Top.Time), r.Before.Time, r.Before.Count, r.Top.Time, r.Top.Count); err != nil {
			return fmt.Errorf("insert peak: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit peaks tx: %w", err)
	}
	return nil
}

// LoadPeaks returns the stored peaks for a VOD in chronological order.
func LoadPeaks(ctx context.Context, dbx *sql.DB, vodID string) ([]StoredPeak, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT policy, slope, before_time, before_count, top_time, top_count
		FROM chat_peaks WHERE vod_id=$1 ORDER BY top_time ASC`, vodID)
	if err != nil {
		return nil, fmt.Errorf("query peaks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]StoredPeak, 0)
	for rows.Next() {
		var p StoredPeak
		if err := rows.Scan(&p.Policy, &p.Slope, &p.Record.Before.Time, &p.Record.Before.Count, &p.Record.Top.Time, &p.Record.Top.Count); err != nil {
			return nil, fmt.Errorf("scan peak: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
