package chatlog

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `[
		{"time_in_seconds": 1.5, "username": "a", "message": "hello"},
		{"time_in_seconds": 2, "message": "hi"},
		{"username": "broken", "message": "no timestamp"},
		{"time_in_seconds": 20, "username": "b", "message": "hype"}
	]`
	msgs, skipped, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped record, got %d", skipped)
	}
	if msgs[0].TimeInSeconds != 1.5 || msgs[0].Text != "hello" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, _, err := Parse(strings.NewReader("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseEmptyArray(t *testing.T) {
	msgs, skipped, err := Parse(strings.NewReader("[]"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msgs) != 0 || skipped != 0 {
		t.Errorf("expected empty result, got %d messages %d skipped", len(msgs), skipped)
	}
}

func TestClipRange(t *testing.T) {
	msgs := []Message{{TimeInSeconds: 1}, {TimeInSeconds: 5}, {TimeInSeconds: 9}, {TimeInSeconds: 30}}
	clipped := ClipRange(msgs, 2, 14)
	if len(clipped) != 2 {
		t.Fatalf("expected 2 messages in [2,14], got %d", len(clipped))
	}
	open := ClipRange(msgs, 5, -1)
	if len(open) != 3 {
		t.Fatalf("expected 3 messages from 5 onward, got %d", len(open))
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"00:01:00", 60, false},
		{"01:00:00", 3600, false},
		{"01:30:30", 5430, false},
		{"invalid", 0, true},
		{"1:2", 0, true},
		{"00:99:00", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00"},
		{60, "0:01:00"},
		{3600, "1:00:00"},
		{5430, "1:30:30"},
		{14830.7, "4:07:10"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
