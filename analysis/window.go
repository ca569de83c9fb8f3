package analysis

import "math"

// Window is a fixed-width time bucket over the chat timeline.
type Window struct {
	Start float64 // bucket start in seconds relative to broadcast start
	Count int     // messages with timestamp in [Start, Start+width)
	Index int     // position in the ordered window sequence
}

// Bucketize partitions message timestamps into consecutive non-overlapping
// fixed-width windows covering [floor(min), max]. Timestamps need not be
// sorted; every timestamp lands in exactly one window, so the counts sum to
// len(timestamps). An empty input yields no windows.
func Bucketize(timestamps []float64, width float64) []Window {
	if len(timestamps) == 0 {
		return nil
	}
	minTS, maxTS := timestamps[0], timestamps[0]
	for _, t := range timestamps[1:] {
		if t < minTS {
			minTS = t
		}
		if t > maxTS {
			maxTS = t
		}
	}
	start := math.Floor(minTS)
	n := int((maxTS-start)/width) + 1
	windows := make([]Window, n)
	for i := range windows {
		windows[i] = Window{Start: start + float64(i)*width, Index: i}
	}
	for _, t := range timestamps {
		idx := int((t - start) / width)
		if idx >= n { // float rounding at the upper edge
			idx = n - 1
		}
		windows[idx].Count++
	}
	return windows
}
