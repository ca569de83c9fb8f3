package peaks

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/testutil"
)

func TestSlopeFor(t *testing.T) {
	res := &analysis.Result{
		Windows: []analysis.Window{
			{Start: 0, Count: 3, Index: 0},
			{Start: 10, Count: 0, Index: 1},
			{Start: 20, Count: 4, Index: 2},
		},
		Slopes: []float64{-3, 4},
	}
	if got := slopeFor(res, 20); got != 4 {
		t.Errorf("slopeFor(20) = %v, want 4", got)
	}
	if got := slopeFor(res, 10); got != -3 {
		t.Errorf("slopeFor(10) = %v, want -3", got)
	}
	// first window has no incoming transition
	if got := slopeFor(res, 0); got != 0 {
		t.Errorf("slopeFor(0) = %v, want 0", got)
	}
	if got := slopeFor(res, 999); got != 0 {
		t.Errorf("slopeFor(unknown) = %v, want 0", got)
	}
}

func TestAnalyzeVODIntegration(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()

	vodID := "peaks-test-vod"
	if _, err := dbx.ExecContext(ctx, `INSERT INTO vods (twitch_vod_id, title, date, duration_seconds, chat_imported)
		VALUES ($1,'Test VOD',NOW(),120,TRUE) ON CONFLICT (twitch_vod_id) DO NOTHING`, vodID); err != nil {
		t.Fatalf("insert vod: %v", err)
	}
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM chat_peaks WHERE vod_id=$1`, vodID)
		_, _ = dbx.Exec(`DELETE FROM chat_messages WHERE vod_id=$1`, vodID)
		_, _ = dbx.Exec(`DELETE FROM vods WHERE twitch_vod_id=$1`, vodID)
	})

	// A flat stretch then a burst in the 20s window.
	times := []float64{0, 0, 5, 5, 5, 20, 20, 20, 20}
	for _, ts := range times {
		if _, err := dbx.ExecContext(ctx, `INSERT INTO chat_messages (vod_id, username, message, abs_timestamp, rel_timestamp, badges, emotes, color)
			VALUES ($1,'u','m',$2,$3,'','','')`, vodID, time.Now(), ts); err != nil {
			t.Fatalf("insert chat message: %v", err)
		}
	}

	opts := analysis.DefaultOptions()
	if err := AnalyzeVOD(ctx, dbx, vodID, opts); err != nil {
		t.Fatalf("AnalyzeVOD: %v", err)
	}

	stored, err := LoadPeaks(ctx, dbx, vodID)
	if err != nil {
		t.Fatalf("LoadPeaks: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored peak, got %d", len(stored))
	}
	p := stored[0]
	if p.Record.Top.Time != 20 || p.Record.Top.Count != 4 {
		t.Errorf("top = %+v, want time 20 count 4", p.Record.Top)
	}
	if p.Record.Before.Time != 10 || p.Record.Before.Count != 0 {
		t.Errorf("before = %+v, want time 10 count 0", p.Record.Before)
	}
	if p.Slope != 4 {
		t.Errorf("slope = %v, want 4", p.Slope)
	}
	if p.Policy != "difference" {
		t.Errorf("policy = %q, want difference", p.Policy)
	}

	var analyzed bool
	if err := dbx.QueryRowContext(ctx, `SELECT analyzed FROM vods WHERE twitch_vod_id=$1`, vodID).Scan(&analyzed); err != nil {
		t.Fatalf("query analyzed flag: %v", err)
	}
	if !analyzed {
		t.Error("vod not marked analyzed")
	}

	// Re-analyzing replaces rather than duplicates.
	if err := AnalyzeVOD(ctx, dbx, vodID, opts); err != nil {
		t.Fatalf("AnalyzeVOD rerun: %v", err)
	}
	stored, err = LoadPeaks(ctx, dbx, vodID)
	if err != nil {
		t.Fatalf("LoadPeaks rerun: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("rerun expected 1 stored peak, got %d", len(stored))
	}
}
