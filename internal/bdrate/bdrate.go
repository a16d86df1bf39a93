package bdrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Reason explains an invalid Result.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInsufficientPoints Reason = "INSUFFICIENT_POINTS"
	ReasonNoOverlap          Reason = "NO_OVERLAP"
	ReasonNonMonotonic       Reason = "NON_MONOTONIC_CURVE"
	ReasonInvalidSample      Reason = "INVALID_SAMPLE"
	ReasonFitFailed          Reason = "FIT_FAILED"
	// ReasonMissingMetric marks a comparison whose rows never measured the
	// metric. Compute never returns it.
	ReasonMissingMetric Reason = "MISSING_METRIC"
)

// Text returns the lower-case phrase used in reports.
func (r Reason) Text() string {
	switch r {
	case ReasonInsufficientPoints:
		return "insufficient points"
	case ReasonNoOverlap:
		return "no overlap"
	case ReasonNonMonotonic:
		return "non-monotonic curve"
	case ReasonInvalidSample:
		return "invalid sample"
	case ReasonFitFailed:
		return "fit failed"
	case ReasonMissingMetric:
		return "metric not measured"
	}
	return string(r)
}

// Mode selects which axis carries the metric being reported.
type Mode int

const (
	// ModeRate reports the average bitrate change in percent at equal
	// metric (BD-Rate).
	ModeRate Mode = iota
	// ModeMetric reports the average metric change at equal bitrate
	// (BD-PSNR, BD-MOTA).
	ModeMetric
)

func (m Mode) String() string {
	if m == ModeRate {
		return "rate"
	}
	return "metric"
}

// Integration selects how the fitted difference is integrated.
type Integration int

const (
	// Analytic integrates the cubic segments in closed form.
	Analytic Integration = iota
	// Sampled applies the trapezoid rule to the fits evaluated on an evenly
	// spaced grid, matching older tooling.
	Sampled
)

// DefaultSamples is the grid size of the sampled integration mode.
const DefaultSamples = 1000

// Options configure Compute.
type Options struct {
	Mode        Mode
	Integration Integration
	// Samples is the sampled-mode grid size; DefaultSamples when zero.
	Samples int
}

// Result is a BD delta. Value is a percentage in rate mode and a metric
// difference in metric mode. Value is meaningless unless Valid.
type Result struct {
	Valid  bool    `json:"valid"`
	Value  float64 `json:"value"`
	Mode   Mode    `json:"mode"`
	Reason Reason  `json:"reason,omitempty"`
}

func invalid(m Mode, r Reason) Result {
	return Result{Mode: m, Reason: r}
}

// String formats the value with its unit, or "N/A (reason)".
func (r Result) String() string {
	if !r.Valid {
		return fmt.Sprintf("N/A (%s)", r.Reason.Text())
	}
	if r.Mode == ModeRate {
		return fmt.Sprintf("%.2f%%", r.Value)
	}
	return fmt.Sprintf("%.4f", r.Value)
}

// BDRate returns the average bitrate change of test relative to anchor at
// equal metric. Negative is a saving.
func BDRate(anchor, test Curve) Result {
	return Compute(anchor, test, Options{Mode: ModeRate})
}

// BDPSNR returns the average PSNR change of test relative to anchor at
// equal bitrate.
func BDPSNR(anchor, test Curve) Result {
	return Compute(anchor, test, Options{Mode: ModeMetric})
}

// Compute evaluates the Bjøntegaard delta of test against anchor.
func Compute(anchor, test Curve, opts Options) Result {
	a, reason := prepare(anchor)
	if reason != ReasonNone {
		return invalid(opts.Mode, reason)
	}
	t, reason := prepare(test)
	if reason != ReasonNone {
		return invalid(opts.Mode, reason)
	}
	if opts.Mode == ModeRate && (!increasing(a) || !increasing(t)) {
		return invalid(opts.Mode, ReasonNonMonotonic)
	}

	ax, ay := axes(a, opts.Mode)
	tx, ty := axes(t, opts.Mode)
	lo := math.Max(ax[0], tx[0])
	hi := math.Min(ax[len(ax)-1], tx[len(tx)-1])
	if !(hi > lo) {
		return invalid(opts.Mode, ReasonNoOverlap)
	}

	fa, err := Fit(ax, ay)
	if err != nil {
		return invalid(opts.Mode, ReasonFitFailed)
	}
	ft, err := Fit(tx, ty)
	if err != nil {
		return invalid(opts.Mode, ReasonFitFailed)
	}

	var diff float64
	switch opts.Integration {
	case Sampled:
		diff = sampledDifference(fa, ft, lo, hi, opts.Samples)
	default:
		diff = ft.Integral(lo, hi) - fa.Integral(lo, hi)
	}
	avg := diff / (hi - lo)

	value := avg
	if opts.Mode == ModeRate {
		value = (math.Pow(10, avg) - 1) * 100
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid(opts.Mode, ReasonFitFailed)
	}
	return Result{Valid: true, Value: value, Mode: opts.Mode}
}

func sampledDifference(fa, ft *Piecewise, lo, hi float64, n int) float64 {
	if n < 2 {
		n = DefaultSamples
	}
	xs := floats.Span(make([]float64, n), lo, hi)
	d := make([]float64, n)
	for i, x := range xs {
		d[i] = ft.Predict(x) - fa.Predict(x)
	}
	return integrate.Trapezoidal(xs, d)
}
