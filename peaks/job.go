package peaks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/chatlog"
	"github.com/onnwee/peak-tender/db"
	"github.com/onnwee/peak-tender/telemetry"
)

// StartPeakAnalysisJob runs a loop analyzing VODs at an interval. A VOD is
// eligible once its chat is imported and it has not been analyzed yet.
func StartPeakAnalysisJob(ctx context.Context, dbc *sql.DB, opts analysis.Options) {
	interval := 1 * time.Minute
	if s := os.Getenv("PEAK_ANALYZE_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			interval = d
		}
	}
	slog.Info("peak analysis job starting", slog.Duration("interval", interval))
	// Kick an immediate run so we don't wait a full interval after boot.
	if err := processOnce(ctx, dbc, opts); err != nil {
		slog.Warn("analyze once", slog.Any("err", err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("peak analysis job stopped")
			return
		case <-ticker.C:
			if err := processOnce(ctx, dbc, opts); err != nil {
				slog.Warn("analyze once", slog.Any("err", err))
			}
		}
	}
}

// processOnce selects a single pending VOD and analyzes it.
func processOnce(ctx context.Context, dbc *sql.DB, opts analysis.Options) error {
	_ = db.SetKV(ctx, dbc, "job_peak_analyze_last", time.Now().UTC().Format(time.RFC3339))

	var queueDepth int
	_ = dbc.QueryRowContext(ctx, `SELECT COUNT(1) FROM vods WHERE COALESCE(chat_imported,false)=true AND COALESCE(analyzed,false)=false`).Scan(&queueDepth)
	telemetry.SetQueueDepth(queueDepth)
	slog.Debug("analysis cycle queue depth", slog.Int("queue_depth", queueDepth), slog.String("component", "peak_analyze"))

	row := dbc.QueryRowContext(ctx, `SELECT twitch_vod_id, title FROM vods
		WHERE COALESCE(chat_imported,false)=true AND COALESCE(analyzed,false)=false
		AND (analysis_error IS NULL OR analysis_error='')
		ORDER BY date ASC LIMIT 1`)
	var id, title string
	if err := row.Scan(&id, &title); err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("no vods ready for analysis", slog.String("component", "peak_analyze"))
			return nil
		}
		return err
	}
	logger := slog.Default().With(slog.String("vod_id", id), slog.String("component", "peak_analyze"))
	logger.Info("analysis candidate selected", slog.String("title", title), slog.Int("queue_depth", queueDepth))

	if err := AnalyzeVOD(ctx, dbc, id, opts); err != nil {
		logger.Error("analysis failed", slog.Any("err", err))
		_, _ = dbc.ExecContext(ctx, `UPDATE vods SET analysis_error=$1, updated_at=NOW() WHERE twitch_vod_id=$2`, err.Error(), id)
		return err
	}
	return nil
}

// AnalyzeVOD loads a VOD's chat, runs the peak analysis, and replaces the
// stored peaks. On success the VOD is marked analyzed and any previous
// analysis error is cleared.
func AnalyzeVOD(ctx context.Context, dbc *sql.DB, vodID string, opts analysis.Options) error {
	if telemetry.AnalysesStarted != nil {
		telemetry.AnalysesStarted.Inc()
	}

	msgs, err := chatlog.LoadMessages(ctx, dbc, vodID)
	if err != nil {
		if telemetry.AnalysesFailed != nil {
			telemetry.AnalysesFailed.Inc()
		}
		return fmt.Errorf("load chat for %s: %w", vodID, err)
	}
	in := make([]analysis.Message, len(msgs))
	for i, m := range msgs {
		in[i] = analysis.Message{Timestamp: m.TimeInSeconds}
	}

	var res *analysis.Result
	var analyzeErr error
	telemetry.TimeFunc(telemetry.AnalysisDuration, func() {
		res, analyzeErr = analysis.Analyze(in, opts)
	})
	if analyzeErr != nil {
		if telemetry.AnalysesFailed != nil {
			telemetry.AnalysesFailed.Inc()
		}
		return fmt.Errorf("analyze %s: %w", vodID, analyzeErr)
	}
	telemetry.AddSkippedMessages(res.Skipped)

	if err := ReplacePeaks(ctx, dbc, vodID, opts.Policy, res); err != nil {
		if telemetry.AnalysesFailed != nil {
			telemetry.AnalysesFailed.Inc()
		}
		return err
	}
	if _, err := dbc.ExecContext(ctx, `UPDATE vods SET analyzed=TRUE, analysis_error='', updated_at=NOW() WHERE twitch_vod_id=$1`, vodID); err != nil {
		return fmt.Errorf("mark analyzed: %w", err)
	}
	if telemetry.AnalysesSucceeded != nil {
		telemetry.AnalysesSucceeded.Inc()
	}
	if telemetry.PeakRecordsTotal != nil {
		telemetry.PeakRecordsTotal.Add(float64(len(res.Records)))
	}
	slog.Info("analysis complete",
		slog.String("vod_id", vodID),
		slog.Int("messages", len(msgs)),
		slog.Int("skipped", res.Skipped),
		slog.Int("windows", len(res.Windows)),
		slog.Int("peaks", len(res.Records)))
	return nil
}
