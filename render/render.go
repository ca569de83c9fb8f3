// Package render formats analysis results for terminal output: an ASCII
// activity timeline, a ranked peaks table, and summary statistics.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/chatlog"
)

// maxBarWidth is the dash count for the busiest window; all other bars scale
// relative to it.
const maxBarWidth = 100

// Color variables for console output.
var (
	SurgeColor = color.New(color.FgRed, color.Bold) // windows selected as peaks
	BusyColor  = color.New(color.FgYellow)          // above-average activity
	QuietColor = color.New(color.FgCyan)            // below-average activity
)

// RankedPeak is a peak record paired with the slope that ranked it.
type RankedPeak struct {
	Slope  float64
	Record analysis.PeakRecord
}

// ActivityBars writes one line per window: a clock offset, a bar scaled
// against the busiest window, and the message count.
func ActivityBars(w io.Writer, res *analysis.Result) error {
	maxCount := 0
	for _, win := range res.Windows {
		if win.Count > maxCount {
			maxCount = win.Count
		}
	}
	if maxCount == 0 {
		_, err := fmt.Fprintln(w, "no chat activity")
		return err
	}

	peakStarts := make(map[float64]struct{}, len(res.Records))
	for _, r := range res.Records {
		peakStarts[r.Top.Time] = struct{}{}
	}
	avg := averageCount(res.Windows)

	for _, win := range res.Windows {
		bar := strings.Repeat("-", win.Count*maxBarWidth/maxCount)
		if _, ok := peakStarts[win.Start]; ok {
			bar = SurgeColor.Sprint(bar)
		} else if float64(win.Count) > avg {
			bar = BusyColor.Sprint(bar)
		} else {
			bar = QuietColor.Sprint(bar)
		}
		if _, err := fmt.Fprintf(w, "%s | %s | %d messages\n", chatlog.FormatClock(win.Start), bar, win.Count); err != nil {
			return err
		}
	}
	return nil
}

// PeaksTable writes ranked peaks as a table, preserving the given order.
func PeaksTable(w io.Writer, peaks []RankedPeak) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Jump To", "Quiet Count", "Peak At", "Peak Count", "Slope"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, p := range peaks {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			chatlog.FormatClock(p.Record.Before.Time),
			strconv.Itoa(p.Record.Before.Count),
			chatlog.FormatClock(p.Record.Top.Time),
			strconv.Itoa(p.Record.Top.Count),
			strconv.FormatFloat(p.Slope, 'f', 2, 64),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// RecordsTable is PeaksTable for plain analysis results, deriving each
// record's slope from the result's slope series.
func RecordsTable(w io.Writer, res *analysis.Result) error {
	rows := make([]RankedPeak, 0, len(res.Records))
	for _, r := range res.Records {
		rows = append(rows, RankedPeak{Slope: slopeAt(res, r.Top.Time), Record: r})
	}
	return PeaksTable(w, rows)
}

func slopeAt(res *analysis.Result, topTime float64) float64 {
	for _, win := range res.Windows {
		if win.Start == topTime && win.Index > 0 && win.Index-1 < len(res.Slopes) {
			return res.Slopes[win.Index-1]
		}
	}
	return 0
}

// SampleMessages writes up to n chat messages from inside each peak window,
// in chronological peak order, so a reader can see what chat was reacting to.
func SampleMessages(w io.Writer, res *analysis.Result, msgs []chatlog.Message, n int, windowSeconds float64) error {
	if n <= 0 {
		return nil
	}
	for _, r := range res.Records {
		header := fmt.Sprintf("%s (%d messages)", chatlog.FormatClock(r.Top.Time), r.Top.Count)
		if _, err := fmt.Fprintf(w, "%s\n", SurgeColor.Sprint(header)); err != nil {
			return err
		}
		shown := 0
		for _, m := range msgs {
			if m.TimeInSeconds < r.Top.Time || m.TimeInSeconds >= r.Top.Time+windowSeconds {
				continue
			}
			if _, err := fmt.Fprintf(w, "    %s %s: %s\n", chatlog.FormatClock(m.TimeInSeconds), m.Username, m.Text); err != nil {
				return err
			}
			shown++
			if shown >= n {
				break
			}
		}
	}
	return nil
}

// Summary writes aggregate statistics for a run.
func Summary(w io.Writer, res *analysis.Result, totalMessages int) error {
	minCount, maxCount := 0, 0
	if len(res.Windows) > 0 {
		minCount = res.Windows[0].Count
		for _, win := range res.Windows {
			if win.Count > maxCount {
				maxCount = win.Count
			}
			if win.Count < minCount {
				minCount = win.Count
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d messages in %d windows (%d skipped); per window avg %.1f, min %d, max %d; %d peaks\n",
		totalMessages, len(res.Windows), res.Skipped, averageCount(res.Windows), minCount, maxCount, len(res.Records))
	return err
}

func averageCount(windows []analysis.Window) float64 {
	if len(windows) == 0 {
		return 0
	}
	total := 0
	for _, w := range windows {
		total += w.Count
	}
	return float64(total) / float64(len(windows))
}
