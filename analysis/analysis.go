// Package analysis implements the chat-activity peak detection engine:
// bucketing a message timeline into fixed windows, deriving a rate-of-change
// series, ranking surge windows, and pairing each selected peak with the
// quietest preceding window inside a bounded lookback.
//
// The pipeline is a single deterministic pass over an in-memory message
// list: Bucketize -> Slopes -> SelectPeaks -> QuietBefore -> sorted records.
// Identical input and options always produce identical output.
package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Defaults used by DefaultOptions and the config layer.
const (
	DefaultWindowSeconds   = 10.0
	DefaultNumPeaks        = 50
	DefaultLookbackSeconds = 60.0
)

// Message is the minimal view of a chat message the engine consumes; all
// other chat metadata is opaque to the analysis.
type Message struct {
	Timestamp float64 // seconds relative to broadcast start
}

// Moment is a (time, count) pair as serialized for playback tooling.
type Moment struct {
	Time  float64 `json:"time"`
	Count int     `json:"count"`
}

// PeakRecord pairs a peak window with the quietest window preceding it, so a
// player can seek to Before.Time and ride the buildup into the peak.
type PeakRecord struct {
	Before Moment `json:"before"`
	Top    Moment `json:"top"`
}

// Options configures a single analysis run. Use DefaultOptions as a starting
// point; zero values are rejected by Validate, not silently defaulted.
type Options struct {
	WindowSeconds   float64
	NumPeaks        int
	Policy          Policy
	LookbackSeconds float64
}

// DefaultOptions returns the documented defaults: 10s windows, top 50 peaks,
// difference policy, 60s lookback.
func DefaultOptions() Options {
	return Options{
		WindowSeconds:   DefaultWindowSeconds,
		NumPeaks:        DefaultNumPeaks,
		Policy:          PolicyDifference,
		LookbackSeconds: DefaultLookbackSeconds,
	}
}

// Validate rejects configuration the engine cannot run with. Data conditions
// (empty input, malformed records) are never validation errors.
func (o Options) Validate() error {
	if o.WindowSeconds <= 0 || math.IsNaN(o.WindowSeconds) || math.IsInf(o.WindowSeconds, 0) {
		return fmt.Errorf("invalid configuration: window width must be positive, got %v", o.WindowSeconds)
	}
	if o.LookbackSeconds <= 0 || math.IsNaN(o.LookbackSeconds) || math.IsInf(o.LookbackSeconds, 0) {
		return fmt.Errorf("invalid configuration: lookback must be positive, got %v", o.LookbackSeconds)
	}
	if o.NumPeaks < 0 {
		return fmt.Errorf("invalid configuration: num peaks must be >= 0, got %d", o.NumPeaks)
	}
	if o.Policy != PolicyDifference && o.Policy != PolicyRatio {
		return fmt.Errorf("invalid configuration: unknown slope policy %v", o.Policy)
	}
	return nil
}

// Result is the immutable outcome of one analysis run. Windows and Slopes
// are kept alongside the records so callers can chart the full timeline.
type Result struct {
	Records []PeakRecord
	Windows []Window
	Slopes  []float64
	Skipped int // messages dropped for missing a usable timestamp
}

// Analyze runs the full pipeline over msgs. An empty or fully-malformed
// input yields a Result with no records, not an error; only invalid Options
// fail, and they fail before any computation starts.
func Analyze(msgs []Message, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ts := make([]float64, 0, len(msgs))
	skipped := 0
	for _, m := range msgs {
		if math.IsNaN(m.Timestamp) || math.IsInf(m.Timestamp, 0) || m.Timestamp < 0 {
			skipped++
			continue
		}
		ts = append(ts, m.Timestamp)
	}
	windows := Bucketize(ts, opts.WindowSeconds)
	slopes := Slopes(windows, opts.Policy)
	peaks := SelectPeaks(windows, slopes, opts.NumPeaks)

	records := make([]PeakRecord, 0, len(peaks))
	for _, p := range peaks {
		q := QuietBefore(windows, p, opts.LookbackSeconds)
		records = append(records, PeakRecord{
			Before: Moment{Time: q.Start, Count: q.Count},
			Top:    Moment{Time: p.Start, Count: p.Count},
		})
	}
	// Selection order is by slope rank; downstream "jump to next peak"
	// navigation needs chronological order.
	sort.Slice(records, func(i, j int) bool { return records[i].Top.Time < records[j].Top.Time })

	return &Result{Records: records, Windows: windows, Slopes: slopes, Skipped: skipped}, nil
}
