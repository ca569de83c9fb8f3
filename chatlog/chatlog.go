// Package chatlog loads chat message timelines from the two sources the
// engine analyzes: downloaded JSON chat exports and the chat_messages table.
package chatlog

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
)

// Message is one chat message with a timestamp relative to broadcast start.
// Text and Username ride along for display; the engine only reads the time.
type Message struct {
	TimeInSeconds float64 `json:"time_in_seconds"`
	Username      string  `json:"username,omitempty"`
	Text          string  `json:"message,omitempty"`
}

// rawMessage mirrors the export format; a pointer timestamp distinguishes a
// missing field from a message at second zero.
type rawMessage struct {
	TimeInSeconds *float64 `json:"time_in_seconds"`
	Username      string   `json:"username"`
	Text          string   `json:"message"`
}

// Parse reads a JSON array of chat messages. Records without a usable
// timestamp are skipped and counted rather than failing the whole load.
func Parse(r io.Reader) ([]Message, int, error) {
	var raw []rawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode chat export: %w", err)
	}
	out := make([]Message, 0, len(raw))
	skipped := 0
	for _, m := range raw {
		if m.TimeInSeconds == nil || math.IsNaN(*m.TimeInSeconds) || math.IsInf(*m.TimeInSeconds, 0) {
			skipped++
			continue
		}
		out = append(out, Message{TimeInSeconds: *m.TimeInSeconds, Username: m.Username, Text: m.Text})
	}
	return out, skipped, nil
}

// LoadFile parses a chat export from disk.
func LoadFile(path string) ([]Message, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open chat export: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close chat export", slog.Any("err", err))
		}
	}()
	return Parse(f)
}

// ClipRange keeps messages with start <= time, and time <= end when end is
// non-negative. A negative end leaves the range open-ended.
func ClipRange(msgs []Message, start, end float64) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.TimeInSeconds < start {
			continue
		}
		if end >= 0 && m.TimeInSeconds > end {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ParseClock converts HH:MM:SS into seconds.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time must be in HH:MM:SS format, got %q", s)
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("time must be in HH:MM:SS format, got %q", s)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return float64(h*3600 + m*60 + sec), nil
}

// FormatClock renders seconds as H:MM:SS for human-readable output.
func FormatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
