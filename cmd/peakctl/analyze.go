package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/chatlog"
	"github.com/onnwee/peak-tender/render"
)

var analyzeFlags struct {
	file     string
	window   float64
	peaks    int
	messages int
	policy   string
	lookback float64
	start    string
	end      string
	output   string
	noColor  bool
	noBars   bool
}

// analyzeCmd runs peak detection over an exported chat log file.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect chat activity peaks in an exported chat log",
	Long: `Analyze a JSON chat export (an array of {"time_in_seconds": ..., "username": ..., "message": ...}
objects) and report the windows where chat activity jumped the most.

Each reported peak comes with a "jump to" timestamp: the quietest window in
the lookback period before the peak, so you can seek there and watch the
buildup.

Examples:
  # Top 50 peaks with 10s windows (defaults)
  peakctl analyze -f chat.json

  # Wider windows, fewer peaks, relative growth instead of absolute jumps
  peakctl analyze -f chat.json -w 30 -m 10 --policy ratio

  # Show the first 3 chat messages inside each peak window
  peakctl analyze -f chat.json -n 3

  # Only look at the second hour of the broadcast
  peakctl analyze -f chat.json -s 1:00:00 -e 2:00:00

  # Machine-readable output
  peakctl analyze -f chat.json -o json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFlags.file, "file", "f", "", "Path to the JSON chat export (required)")
	analyzeCmd.Flags().Float64VarP(&analyzeFlags.window, "window", "w", analysis.DefaultWindowSeconds, "Window size in seconds")
	analyzeCmd.Flags().IntVarP(&analyzeFlags.peaks, "peaks", "m", analysis.DefaultNumPeaks, "Maximum number of peaks to report")
	analyzeCmd.Flags().IntVarP(&analyzeFlags.messages, "messages", "n", 0, "Chat messages to print under each peak (0 = none)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.policy, "policy", "difference", "Slope policy: difference or ratio")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.lookback, "lookback", analysis.DefaultLookbackSeconds, "Lookback in seconds when finding the quiet window before a peak")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.start, "start", "s", "", "Only consider messages at or after this offset (H:MM:SS)")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.end, "end", "e", "", "Only consider messages before this offset (H:MM:SS)")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.output, "output", "o", "text", "Output format: text or json")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noColor, "no-color", false, "Disable colored output")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noBars, "no-bars", false, "Skip the per-window activity timeline")
	_ = analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeFlags.noColor {
		color.NoColor = true
	}

	msgs, skippedParse, err := chatlog.LoadFile(analyzeFlags.file)
	if err != nil {
		return fmt.Errorf("load chat log: %w", err)
	}

	start, end := 0.0, math.Inf(1)
	if analyzeFlags.start != "" {
		if start, err = chatlog.ParseClock(analyzeFlags.start); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	if analyzeFlags.end != "" {
		if end, err = chatlog.ParseClock(analyzeFlags.end); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}
	if analyzeFlags.start != "" || analyzeFlags.end != "" {
		msgs = chatlog.ClipRange(msgs, start, end)
	}

	policy, err := analysis.ParsePolicy(analyzeFlags.policy)
	if err != nil {
		return err
	}
	opts := analysis.Options{
		WindowSeconds:   analyzeFlags.window,
		NumPeaks:        analyzeFlags.peaks,
		Policy:          policy,
		LookbackSeconds: analyzeFlags.lookback,
	}

	in := make([]analysis.Message, len(msgs))
	for i, m := range msgs {
		in[i] = analysis.Message{Timestamp: m.TimeInSeconds}
	}
	res, err := analysis.Analyze(in, opts)
	if err != nil {
		return err
	}
	res.Skipped += skippedParse

	out := cmd.OutOrStdout()
	if analyzeFlags.output == "json" {
		windows := make([]analysis.Moment, 0, len(res.Windows))
		for _, win := range res.Windows {
			windows = append(windows, analysis.Moment{Time: win.Start, Count: win.Count})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"windows": windows,
			"slopes":  res.Slopes,
			"records": res.Records,
			"skipped": res.Skipped,
		})
	}

	if !analyzeFlags.noBars {
		if err := render.ActivityBars(out, res); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if len(res.Records) > 0 {
		if err := render.RecordsTable(out, res); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if analyzeFlags.messages > 0 && len(res.Records) > 0 {
		if err := render.SampleMessages(out, res, msgs, analyzeFlags.messages, opts.WindowSeconds); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return render.Summary(out, res, len(msgs))
}
