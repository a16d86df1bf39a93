package bdrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = Curve{{1000, 30}, {2000, 32}, {4000, 34}, {8000, 36}}

func scaleRate(c Curve, f float64) Curve {
	out := make(Curve, len(c))
	for i, s := range c {
		out[i] = Sample{Bitrate: s.Bitrate * f, Metric: s.Metric}
	}
	return out
}

func shiftMetric(c Curve, d float64) Curve {
	out := make(Curve, len(c))
	for i, s := range c {
		out[i] = Sample{Bitrate: s.Bitrate, Metric: s.Metric + d}
	}
	return out
}

func TestIdenticalCurves(t *testing.T) {
	t.Parallel()

	five := Curve{{500, 28.1}, {1000, 30}, {2000, 32.4}, {4000, 34}, {8000, 35.2}}
	for _, c := range []Curve{anchor, five} {
		for _, mode := range []Mode{ModeRate, ModeMetric} {
			r := Compute(c, c, Options{Mode: mode})
			require.True(t, r.Valid, r.String())
			assert.InDelta(t, 0, r.Value, 1e-9)
		}
	}
}

func TestKnownShift(t *testing.T) {
	t.Parallel()

	five := Curve{{500, 27}, {1000, 30}, {2000, 32.5}, {4000, 34}, {8000, 35}}
	testCases := []struct {
		name   string
		anchor Curve
	}{
		{"exact cubic", anchor},
		{"monotone piecewise", five},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := BDRate(tc.anchor, scaleRate(tc.anchor, 0.9))
			require.True(t, r.Valid)
			assert.InDelta(t, -10.0, r.Value, 1e-6)

			r = BDRate(tc.anchor, scaleRate(tc.anchor, 1.25))
			require.True(t, r.Valid)
			assert.InDelta(t, 25.0, r.Value, 1e-6)

			p := BDPSNR(tc.anchor, shiftMetric(tc.anchor, 0.5))
			require.True(t, p.Valid)
			assert.InDelta(t, 0.5, p.Value, 1e-9)
		})
	}
}

func TestInvalidResults(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		anchor Curve
		test   Curve
		mode   Mode
		want   Reason
	}{
		{
			name:   "three points",
			anchor: anchor,
			test:   Curve{{1000, 30}, {2000, 32}, {4000, 34}},
			want:   ReasonInsufficientPoints,
		},
		{
			name:   "duplicates collapse below four",
			anchor: Curve{{1000, 30}, {1000, 30.2}, {2000, 32}, {4000, 34}, {4000, 34.4}},
			test:   anchor,
			want:   ReasonInsufficientPoints,
		},
		{
			name:   "metric ranges disjoint",
			anchor: anchor,
			test:   shiftMetric(anchor, 10),
			want:   ReasonNoOverlap,
		},
		{
			name:   "bitrate ranges disjoint",
			anchor: anchor,
			test:   scaleRate(anchor, 100),
			mode:   ModeMetric,
			want:   ReasonNoOverlap,
		},
		{
			name:   "metric falls with bitrate",
			anchor: anchor,
			test:   Curve{{1000, 30}, {2000, 33}, {4000, 32}, {8000, 36}},
			want:   ReasonNonMonotonic,
		},
		{
			name:   "zero bitrate",
			anchor: Curve{{0, 29}, {2000, 32}, {4000, 34}, {8000, 36}},
			test:   anchor,
			want:   ReasonInvalidSample,
		},
		{
			name:   "nan metric",
			anchor: anchor,
			test:   Curve{{1000, math.NaN()}, {2000, 32}, {4000, 34}, {8000, 36}},
			mode:   ModeMetric,
			want:   ReasonInvalidSample,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Compute(tc.anchor, tc.test, Options{Mode: tc.mode})
			assert.False(t, r.Valid)
			assert.Equal(t, tc.want, r.Reason)
		})
	}
}

func TestNonMonotonicAllowedInMetricMode(t *testing.T) {
	t.Parallel()

	bumpy := Curve{{1000, 30}, {2000, 33}, {4000, 32}, {8000, 36}}
	r := BDPSNR(anchor, bumpy)
	assert.True(t, r.Valid)
}

func TestDuplicateBitratesAveraged(t *testing.T) {
	t.Parallel()

	dup := Curve{{1000, 29}, {1000, 31}, {2000, 32}, {4000, 34}, {8000, 36}}
	r := BDPSNR(anchor, dup)
	require.True(t, r.Valid)
	assert.InDelta(t, 0, r.Value, 1e-9)
}

func TestPartialOverlap(t *testing.T) {
	t.Parallel()

	r := BDRate(anchor, shiftMetric(scaleRate(anchor, 0.8), 1))
	require.True(t, r.Valid)
	assert.Less(t, r.Value, -20.0)
}

func TestSampledMatchesAnalytic(t *testing.T) {
	t.Parallel()

	test := Curve{{900, 30.2}, {1700, 32.1}, {3600, 34.3}, {7000, 35.9}, {12000, 37}}
	for _, mode := range []Mode{ModeRate, ModeMetric} {
		a := Compute(anchor, test, Options{Mode: mode})
		s := Compute(anchor, test, Options{Mode: mode, Integration: Sampled})
		require.True(t, a.Valid)
		require.True(t, s.Valid)
		assert.InDelta(t, a.Value, s.Value, 1e-3, mode.String())
	}
}

func TestResultString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "N/A (insufficient points)", invalid(ModeRate, ReasonInsufficientPoints).String())
	assert.Equal(t, "-10.00%", Result{Valid: true, Value: -10, Mode: ModeRate}.String())
	assert.Equal(t, "0.5000", Result{Valid: true, Value: 0.5, Mode: ModeMetric}.String())
}
