package propagation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roiqp/internal/geometry"
)

// Reason names why a frame ran the detector. The empty Reason means the
// frame was propagated.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonKeyframe          Reason = "keyframe"
	ReasonCeiling           Reason = "ceiling"
	ReasonMotionUnavailable Reason = "motion_unavailable"
	ReasonRetry             Reason = "retry"
	ReasonBoxMotion         Reason = "box_motion"
	ReasonDivergence        Reason = "divergence"
	ReasonFieldVariance     Reason = "field_variance"
)

// Trigger holds the thresholds of the re-detection predicate. Each check is
// exported so it can be exercised on its own.
type Trigger struct {
	MotionThreshold     float64
	DivergenceThreshold float64
	VarianceThreshold   float64
}

// BoxMotionExceeded reports whether the mean motion magnitude inside any
// box is above MotionThreshold.
func (t Trigger) BoxMotionExceeded(rois geometry.ROISet, field *geometry.MotionField) bool {
	for _, b := range rois {
		rs, ok := field.Region(b)
		if ok && rs.MeanMagnitude > t.MotionThreshold {
			return true
		}
	}
	return false
}

// AreaDivergenceExceeded reports whether the coefficient of variation of
// box areas is above DivergenceThreshold. Sets with fewer than two boxes
// never diverge.
func (t Trigger) AreaDivergenceExceeded(rois geometry.ROISet) bool {
	return AreaCV(rois) > t.DivergenceThreshold
}

// FieldVarianceExceeded reports whether the total variance of the motion
// field is above VarianceThreshold.
func (t Trigger) FieldVarianceExceeded(field *geometry.MotionField) bool {
	return field.Variance() > t.VarianceThreshold
}

// Evaluate runs the checks in order and returns the first that fires.
// prev are the boxes the motion was sampled in; next are the propagated
// candidates whose areas are compared.
func (t Trigger) Evaluate(prev, next geometry.ROISet, field *geometry.MotionField) (Reason, bool) {
	switch {
	case t.BoxMotionExceeded(prev, field):
		return ReasonBoxMotion, true
	case t.AreaDivergenceExceeded(next):
		return ReasonDivergence, true
	case t.FieldVarianceExceeded(field):
		return ReasonFieldVariance, true
	}
	return ReasonNone, false
}

// AreaCV returns stddev/mean of the box areas using the population
// standard deviation, or 0 when undefined.
func AreaCV(rois geometry.ROISet) float64 {
	if len(rois) < 2 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(rois.Areas(), nil)
	if mean <= 0 {
		return 0
	}
	return math.Sqrt(variance) / mean
}
