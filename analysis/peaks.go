package analysis

import "sort"

// Peak is a window whose activity rose sharply relative to its predecessor.
// Slope is the inbound rate of change (slopes[Index-1]); the first window
// has no predecessor and is never a peak candidate.
type Peak struct {
	Window
	Slope float64
}

// SelectPeaks returns up to n windows ranked by inbound slope, highest
// first. Only strictly positive slopes qualify; having fewer than n
// candidates is not an error. Equal slopes are broken by earlier start so
// output is reproducible. Adjacent windows may both be selected; overlap
// deduplication is deliberately not performed.
func SelectPeaks(windows []Window, slopes []float64, n int) []Peak {
	if n <= 0 {
		return nil
	}
	cands := make([]Peak, 0, len(slopes))
	for i, s := range slopes {
		if s > 0 {
			cands = append(cands, Peak{Window: windows[i+1], Slope: s})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Slope != cands[j].Slope {
			return cands[i].Slope > cands[j].Slope
		}
		return cands[i].Start < cands[j].Start
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands
}

// QuietBefore finds the minimum-count window whose start lies in
// [peak.Start-lookback, peak.Start); ties go to the earliest window. When no
// window falls in that range the earliest window before the peak is used,
// and a peak in the very first window falls back to itself (callers must
// treat before == top as a valid record with zero lead time).
func QuietBefore(windows []Window, peak Peak, lookback float64) Window {
	lo := peak.Start - lookback
	var best *Window
	for i := range windows {
		if windows[i].Start >= peak.Start {
			break
		}
		if windows[i].Start < lo {
			continue
		}
		if best == nil || windows[i].Count < best.Count {
			best = &windows[i]
		}
	}
	if best != nil {
		return *best
	}
	if peak.Index > 0 {
		return windows[0]
	}
	return peak.Window
}
