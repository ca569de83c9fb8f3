package analysis

import "fmt"

// Policy selects how the rate of change between consecutive windows is
// computed. It is a closed set; SelectPeaks and everything downstream only
// ever see the resulting scalar.
type Policy int

const (
	// PolicyDifference scores a transition by the absolute change in
	// message count: count[i+1] - count[i].
	PolicyDifference Policy = iota
	// PolicyRatio scores by relative growth, count[i+1] / max(count[i], 1).
	// More stable for low-traffic chats where small absolute jumps matter.
	PolicyRatio
)

func (p Policy) String() string {
	switch p {
	case PolicyDifference:
		return "difference"
	case PolicyRatio:
		return "ratio"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps the configuration strings "difference" and "ratio". The
// empty string selects the default difference policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "difference", "":
		return PolicyDifference, nil
	case "ratio":
		return PolicyRatio, nil
	}
	return 0, fmt.Errorf("unknown slope policy %q", s)
}

func (p Policy) slope(cur, next int) float64 {
	if p == PolicyRatio {
		d := cur
		if d < 1 {
			d = 1 // empty window; never divide by zero
		}
		return float64(next) / float64(d)
	}
	return float64(next - cur)
}

// Slopes computes the rate-of-change series for consecutive windows.
// slopes[i] describes the transition from windows[i] into windows[i+1]; the
// final window has no successor and therefore no slope.
func Slopes(windows []Window, p Policy) []float64 {
	if len(windows) < 2 {
		return nil
	}
	out := make([]float64, len(windows)-1)
	for i := 0; i < len(windows)-1; i++ {
		out[i] = p.slope(windows[i].Count, windows[i+1].Count)
	}
	return out
}
