package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowsWithCounts(counts ...int) []Window {
	out := make([]Window, len(counts))
	for i, c := range counts {
		out[i] = Window{Start: float64(i) * 10, Count: c, Index: i}
	}
	return out
}

func TestSlopesDifference(t *testing.T) {
	slopes := Slopes(windowsWithCounts(3, 0, 4, 4), PolicyDifference)
	assert.Equal(t, []float64{-3, 4, 0}, slopes)
}

func TestSlopesRatio(t *testing.T) {
	slopes := Slopes(windowsWithCounts(2, 6, 3, 0), PolicyRatio)
	assert.Equal(t, []float64{3, 0.5, 0}, slopes)
}

func TestSlopesRatioEmptyWindowGuard(t *testing.T) {
	// A zero-count predecessor divides by 1, not by zero.
	slopes := Slopes(windowsWithCounts(0, 5), PolicyRatio)
	require.Len(t, slopes, 1)
	assert.Equal(t, float64(5), slopes[0])
}

func TestSlopesMonotonicConsistency(t *testing.T) {
	// Zero-to-positive is positive under both policies; a decrease yields
	// difference < 0 and ratio < 1.
	rise := windowsWithCounts(0, 7)
	assert.Greater(t, Slopes(rise, PolicyDifference)[0], float64(0))
	assert.Greater(t, Slopes(rise, PolicyRatio)[0], float64(0))

	fall := windowsWithCounts(8, 3)
	assert.Less(t, Slopes(fall, PolicyDifference)[0], float64(0))
	assert.Less(t, Slopes(fall, PolicyRatio)[0], float64(1))
}

func TestSlopesShortSequences(t *testing.T) {
	assert.Nil(t, Slopes(nil, PolicyDifference))
	assert.Nil(t, Slopes(windowsWithCounts(5), PolicyDifference))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"difference", PolicyDifference, false},
		{"ratio", PolicyRatio, false},
		{"", PolicyDifference, false},
		{"median", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "difference", PolicyDifference.String())
	assert.Equal(t, "ratio", PolicyRatio.String())
}
