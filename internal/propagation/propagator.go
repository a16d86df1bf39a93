package propagation

import (
	"context"
	"image"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// Detector produces a fresh ROI set for a frame. Implementations live in
// internal/detect.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error)
}

// Config holds the propagation parameters.
type Config struct {
	// MaxFramesSinceDetection forces a detection on the frame that would
	// otherwise be the ceiling-th consecutive propagation.
	MaxFramesSinceDetection int
	// MinBoxArea is the smallest clipped area a box may keep, in px².
	MinBoxArea float64
	// MaxDetectionRetries is the number of consecutive detector failures
	// tolerated before the sequence is aborted.
	MaxDetectionRetries int
	Trigger             Trigger
}

// ConfigFromTuning builds a Config from the tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MaxFramesSinceDetection: cfg.GetMaxFramesSinceDetection(),
		MinBoxArea:              cfg.GetMinBoxArea(),
		MaxDetectionRetries:     cfg.GetMaxDetectionRetries(),
		Trigger: Trigger{
			MotionThreshold:     cfg.GetMotionThreshold(),
			DivergenceThreshold: cfg.GetDivergenceThreshold(),
			VarianceThreshold:   cfg.GetVarianceThreshold(),
		},
	}
}

// DefaultConfig returns the built-in propagation parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// State is the cross-frame state of one sequence.
type State struct {
	FramesSinceDetection int
	LastROIs             geometry.ROISet
	// PendingDetection is set after a detector failure so the next frame
	// detects regardless of schedule.
	PendingDetection    bool
	ConsecutiveFailures int
}

// Input is one frame presented to Step. Width and Height are only read
// when Frame is nil. A nil Motion means motion is unavailable.
type Input struct {
	Index      int
	Frame      image.Image
	Width      int
	Height     int
	Motion     *geometry.MotionField
	IsKeyframe bool
}

func (in Input) size() (int, int) {
	if in.Frame != nil {
		b := in.Frame.Bounds()
		return b.Dx(), b.Dy()
	}
	return in.Width, in.Height
}

// Result is the outcome of one Step.
type Result struct {
	Index    int             `json:"index"`
	ROIs     geometry.ROISet `json:"rois"`
	Detected bool            `json:"detected"`
	Reason   Reason          `json:"reason,omitempty"`
	// DetectionFailed is set when a detection was required but the
	// detector failed; ROIs then carries the previous set unchanged.
	DetectionFailed bool `json:"detection_failed,omitempty"`
	Dropped         int  `json:"dropped,omitempty"`
}

// Propagator evolves the ROI set of a single sequence.
type Propagator struct {
	cfg      Config
	detector Detector
	state    State
	stats    Stats
}

// New returns a Propagator with a fresh State.
func New(cfg Config, detector Detector) *Propagator {
	p := &Propagator{cfg: cfg, detector: detector}
	p.Reset()
	return p
}

// Reset clears the state and statistics at a sequence boundary.
func (p *Propagator) Reset() {
	p.state = State{}
	p.stats = newStats()
}

// State returns a copy of the current state.
func (p *Propagator) State() State {
	s := p.state
	s.LastROIs = s.LastROIs.Clone()
	return s
}

// Stats returns a copy of the statistics gathered since the last Reset.
func (p *Propagator) Stats() Stats {
	return p.stats.clone()
}

// Step advances the sequence by one frame. The returned error is non-nil
// only when detector retries are exhausted; every other condition is
// handled inline and reported in Result.
func (p *Propagator) Step(ctx context.Context, in Input) (Result, error) {
	w, h := in.size()
	res := Result{Index: in.Index}
	p.stats.Frames++

	reason := p.scheduledReason(in, w, h)
	if reason == ReasonNone {
		candidate, dropped := p.propagate(p.state.LastROIs, in.Motion, w, h)
		if r, fired := p.cfg.Trigger.Evaluate(p.state.LastROIs, candidate, in.Motion); fired {
			reason = r
		} else {
			p.state.LastROIs = candidate
			p.state.FramesSinceDetection++
			p.stats.Propagations++
			res.ROIs = candidate.Clone()
			res.Dropped = dropped
			return res, nil
		}
	}

	res.Reason = reason
	rois, err := p.detector.Detect(ctx, in.Frame)
	if err != nil {
		return p.detectionFailed(res, in.Index, err)
	}

	clean, dropped := p.sanitize(rois, w, h)
	p.state = State{LastROIs: clean}
	p.stats.Detections++
	p.stats.ByReason[reason]++

	res.Detected = true
	res.ROIs = clean.Clone()
	res.Dropped = dropped
	return res, nil
}

// scheduledReason returns the reason a detection is required before any
// motion is looked at, or ReasonNone.
func (p *Propagator) scheduledReason(in Input, w, h int) Reason {
	switch {
	case in.IsKeyframe:
		return ReasonKeyframe
	case p.state.PendingDetection:
		return ReasonRetry
	case p.state.FramesSinceDetection >= p.cfg.MaxFramesSinceDetection:
		return ReasonCeiling
	case in.Motion == nil:
		monitoring.Logf("frame %d: motion unavailable, forcing detection", in.Index)
		return ReasonMotionUnavailable
	}
	if err := in.Motion.Validate(); err != nil || in.Motion.Width != w || in.Motion.Height != h {
		monitoring.Logf("frame %d: motion field unusable for %dx%d frame, forcing detection", in.Index, w, h)
		return ReasonMotionUnavailable
	}
	return ReasonNone
}

func (p *Propagator) detectionFailed(res Result, index int, err error) (Result, error) {
	if !errors.IsDetectionUnavailable(err) {
		err = errors.WrapDetection(err, "detect")
	}
	p.stats.DetectionFailures++
	p.state.ConsecutiveFailures++
	p.state.PendingDetection = true
	p.state.FramesSinceDetection++

	res.DetectionFailed = true
	res.ROIs = p.state.LastROIs.Clone()

	if p.state.ConsecutiveFailures > p.cfg.MaxDetectionRetries {
		return res, errors.Wrapf(errors.Mark(err, errors.ErrRetriesExhausted),
			"frame %d: %d consecutive detection failures", index, p.state.ConsecutiveFailures)
	}
	monitoring.Logf("frame %d: detection failed (%v), retrying on next frame", index, err)
	return res, nil
}

// propagate translates every box by the mean motion over its interior,
// clips it to the frame and drops what falls below MinBoxArea.
func (p *Propagator) propagate(prev geometry.ROISet, field *geometry.MotionField, w, h int) (geometry.ROISet, int) {
	out := make(geometry.ROISet, 0, len(prev))
	dropped := 0
	for _, b := range prev {
		rs, ok := field.Region(b)
		if !ok {
			dropped++
			monitoring.Debugf("box %s covers no pixels: %v", b, errors.ErrInvalidGeometry)
			continue
		}
		moved := b.Translate(rs.MeanDX, rs.MeanDY).Clip(w, h)
		if !p.keep(moved) {
			dropped++
			continue
		}
		out = append(out, moved)
	}
	return out, dropped
}

// sanitize clips fresh detections to the frame and applies the same area
// floor as propagation.
func (p *Propagator) sanitize(rois geometry.ROISet, w, h int) (geometry.ROISet, int) {
	out := make(geometry.ROISet, 0, len(rois))
	dropped := 0
	for _, b := range rois {
		c := b.Clip(w, h)
		if !p.keep(c) {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

func (p *Propagator) keep(b geometry.BoundingBox) bool {
	if !b.Valid() {
		monitoring.Debugf("dropping box %s: %v", b, errors.ErrInvalidGeometry)
		return false
	}
	if b.Area() < p.cfg.MinBoxArea {
		monitoring.Debugf("dropping box %s: area %.1f below %.1f", b, b.Area(), p.cfg.MinBoxArea)
		return false
	}
	return true
}
