package hierarchy

import (
	"math"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Config controls the context ring around each box.
type Config struct {
	BaseRingRatio float64
	RingMin       float64
	RingMax       float64
	// MotionFactor, MotionNorm and MotionCap scale the ring by
	// clip(1 + MotionFactor*mag/MotionNorm, 1, MotionCap).
	MotionFactor float64
	MotionNorm   float64
	MotionCap    float64
}

// ConfigFromTuning builds a Config from the tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		BaseRingRatio: cfg.GetBaseRingRatio(),
		RingMin:       cfg.GetRingMin(),
		RingMax:       cfg.GetRingMax(),
		MotionFactor:  cfg.GetRingMotionFactor(),
		MotionNorm:    cfg.GetRingMotionNorm(),
		MotionCap:     cfg.GetRingMotionCap(),
	}
}

// DefaultConfig returns the built-in ring parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// Mapper generates importance maps. It holds no per-frame state.
type Mapper struct {
	cfg Config
}

// NewMapper returns a Mapper using cfg.
func NewMapper(cfg Config) *Mapper {
	return &Mapper{cfg: cfg}
}

// RingWidth returns the context ring width in pixels for a box of the
// given area moving at motionMag px/frame.
func (m *Mapper) RingWidth(area, motionMag float64) float64 {
	ring := clip(m.cfg.BaseRingRatio*math.Sqrt(math.Max(area, 0)), m.cfg.RingMin, m.cfg.RingMax)
	scale := 1.0
	if m.cfg.MotionNorm > 0 {
		scale = 1 + m.cfg.MotionFactor*(motionMag/m.cfg.MotionNorm)
	}
	return ring * clip(scale, 1, m.cfg.MotionCap)
}

// Generate labels a width x height frame. motion holds the mean motion
// magnitude of each box, in the same order as rois; missing entries count
// as zero.
func (m *Mapper) Generate(width, height int, rois geometry.ROISet, motion []float64) *geometry.ImportanceMap {
	out := geometry.NewImportanceMap(width, height)

	// Context pass: rings only claim pixels that are still background.
	for i, b := range rois {
		if !b.Valid() {
			continue
		}
		var mag float64
		if i < len(motion) {
			mag = motion[i]
		}
		ring := m.RingWidth(b.Area(), mag)
		x0, y0, x1, y1 := b.Expand(ring).Clip(width, height).PixelBounds(width, height)
		out.PromoteRect(x0, y0, x1, y1, geometry.Context)
	}

	// Core pass: original boxes overwrite whatever the context pass left.
	for _, b := range rois {
		if !b.Valid() {
			continue
		}
		x0, y0, x1, y1 := b.Clip(width, height).PixelBounds(width, height)
		out.FillRect(x0, y0, x1, y1, geometry.Core)
	}
	return out
}

// BoxMotion returns the mean motion magnitude inside each box. A nil field
// yields zeros.
func BoxMotion(rois geometry.ROISet, field *geometry.MotionField) []float64 {
	out := make([]float64, len(rois))
	if field == nil {
		return out
	}
	for i, b := range rois {
		if rs, ok := field.Region(b); ok {
			out[i] = rs.MeanMagnitude
		}
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
