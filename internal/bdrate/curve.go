package bdrate

import (
	"math"
	"sort"
)

// Sample is one encoded operating point.
type Sample struct {
	Bitrate float64 `json:"bitrate"` // kbps
	Metric  float64 `json:"metric"`  // PSNR, MOTA, ...
}

// Curve is a set of operating points in any order.
type Curve []Sample

// MinPoints is the number of distinct bitrates a curve needs.
const MinPoints = 4

// prepare validates c, merges samples that share a bitrate by averaging
// their metrics and returns the result sorted by bitrate.
func prepare(c Curve) (Curve, Reason) {
	for _, s := range c {
		if !(s.Bitrate > 0) || math.IsInf(s.Bitrate, 0) || math.IsNaN(s.Metric) || math.IsInf(s.Metric, 0) {
			return nil, ReasonInvalidSample
		}
	}
	sorted := make(Curve, len(c))
	copy(sorted, c)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Bitrate < sorted[j].Bitrate })

	out := make(Curve, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j, sum := i, 0.0
		for j < len(sorted) && sorted[j].Bitrate == sorted[i].Bitrate {
			sum += sorted[j].Metric
			j++
		}
		out = append(out, Sample{Bitrate: sorted[i].Bitrate, Metric: sum / float64(j-i)})
		i = j
	}
	if len(out) < MinPoints {
		return nil, ReasonInsufficientPoints
	}
	return out, ReasonNone
}

// increasing reports whether the metric strictly increases with bitrate.
// c must be sorted by bitrate.
func increasing(c Curve) bool {
	for i := 1; i < len(c); i++ {
		if c[i].Metric <= c[i-1].Metric {
			return false
		}
	}
	return true
}

// axes returns the fitting domain of c: for the rate mode x is the metric
// and y is log10(bitrate), for the metric mode the axes swap. Points are
// sorted by x.
func axes(c Curve, m Mode) (xs, ys []float64) {
	xs = make([]float64, len(c))
	ys = make([]float64, len(c))
	for i, s := range c {
		lr := math.Log10(s.Bitrate)
		if m == ModeRate {
			xs[i], ys[i] = s.Metric, lr
		} else {
			xs[i], ys[i] = lr, s.Metric
		}
	}
	// Sorted by bitrate already; in rate mode the metric is strictly
	// increasing so the order holds on both axes.
	return xs, ys
}
