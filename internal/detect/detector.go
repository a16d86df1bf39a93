package detect

import (
	"context"
	"image"
	"slices"
	"time"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Detector finds objects in a frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error)
}

// HealthChecker is implemented by detectors backed by a remote service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckHealth follows the Filter, Timeout and RateLimited wrappers around d
// and checks the first HealthChecker found. Local detectors are always
// healthy.
func CheckHealth(ctx context.Context, d Detector) error {
	for d != nil {
		switch v := d.(type) {
		case HealthChecker:
			return v.CheckHealth(ctx)
		case Filter:
			d = v.Next
		case Timeout:
			d = v.Next
		case *RateLimited:
			d = v.Next
		default:
			return nil
		}
	}
	return nil
}

// Func adapts a function to Detector.
type Func func(ctx context.Context, frame image.Image) (geometry.ROISet, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	return f(ctx, frame)
}

// Static returns the same boxes for every frame.
type Static struct {
	ROIs geometry.ROISet
}

// Detect returns a copy of the configured boxes.
func (s Static) Detect(ctx context.Context, _ image.Image) (geometry.ROISet, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapDetection(err, "static detector")
	}
	return s.ROIs.Clone(), nil
}

// Filter drops low-confidence boxes and, when Classes is non-empty, boxes
// whose class is not listed. Boxes without a class pass the class check.
type Filter struct {
	Next          Detector
	MinConfidence float64
	Classes       []int
}

// Detect runs the wrapped detector and filters its output.
func (f Filter) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	rois, err := f.Next.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	rois = rois.FilterConfidence(f.MinConfidence)
	if len(f.Classes) == 0 {
		return rois, nil
	}
	out := rois[:0]
	for _, b := range rois {
		if b.ClassID == nil || slices.Contains(f.Classes, *b.ClassID) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Timeout bounds each call of Next. A zero duration disables the bound.
type Timeout struct {
	Next    Detector
	Timeout time.Duration
}

// Detect calls Next with a per-call deadline. Deadline expiry is reported
// as detection unavailable.
func (t Timeout) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	if t.Timeout <= 0 {
		return t.Next.Detect(ctx, frame)
	}
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	rois, err := t.Next.Detect(ctx, frame)
	if err != nil && !errors.IsDetectionUnavailable(err) {
		err = errors.WrapDetection(err, "detector")
	}
	return rois, err
}
