package qp

import (
	"image"
	"math"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/hierarchy"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// FrameQP is the controller output for one (frame, base QP) pair. It keeps
// every intermediate value so that fallbacks can be audited.
type FrameQP struct {
	BaseQP        int                         `json:"base_qp"`
	Map           *Map                        `json:"map"`
	LevelQP       [geometry.NumLevels]int     `json:"level_qp"`
	Raw           Alphas                      `json:"raw_alphas"`
	Alphas        Alphas                      `json:"alphas"`
	Normalization Normalization               `json:"normalization"`
	Complexity    Complexity                  `json:"complexity"`
	Fractions     [geometry.NumLevels]float64 `json:"fractions"`
	// RateRatio is the theoretical rate factor of the block map relative
	// to a uniform base QP.
	RateRatio float64 `json:"rate_ratio"`
}

// Unnormalized reports whether the frame was flagged for using the raw
// background offset while normalization was enabled.
func (f *FrameQP) Unnormalized() bool {
	return f.Normalization.Fallback
}

// Controller generates QP maps. It holds no per-frame state and is safe
// for concurrent use.
type Controller struct {
	cfg Config
}

// NewController returns a Controller using cfg.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Config returns the controller configuration.
func (c *Controller) Config() Config { return c.cfg }

// Analyze computes the per-level complexity of a frame. A nil frame has
// zero texture everywhere.
func (c *Controller) Analyze(frame image.Image, imp *geometry.ImportanceMap, rois geometry.ROISet, boxMotion []float64) Complexity {
	var cx Complexity
	if frame != nil {
		cx.Texture = TextureComplexity(Laplacian(geometry.ToGray(frame)), imp, c.cfg.TextureNorm)
	}
	cx.Motion = MotionComplexity(rois, boxMotion, c.cfg.MotionNorm)
	return cx
}

// Generate produces the block QP map for one frame at baseQP.
func (c *Controller) Generate(frame image.Image, imp *geometry.ImportanceMap, rois geometry.ROISet, boxMotion []float64, baseQP int) (*FrameQP, error) {
	if frame != nil {
		b := frame.Bounds()
		if b.Dx() != imp.Width || b.Dy() != imp.Height {
			return nil, errors.Newf("frame %dx%d does not match importance map %dx%d", b.Dx(), b.Dy(), imp.Width, imp.Height)
		}
	}
	out := &FrameQP{
		BaseQP:     baseQP,
		Complexity: c.Analyze(frame, imp, rois, boxMotion),
		Fractions:  imp.Fractions(),
	}
	out.Raw = RawAlphas(c.cfg, out.Complexity)
	out.Alphas = out.Raw

	if c.cfg.Normalize {
		out.Normalization = Normalize(out.Fractions, out.Raw, c.cfg.BackgroundRange)
		out.Alphas.Background = out.Normalization.Background
		if out.Normalization.Fallback {
			monitoring.Debugf("qp base %d: %v, using raw background alpha %.2f", baseQP, out.Normalization.Err, out.Raw.Background)
		}
	} else {
		out.Normalization = Normalization{Background: out.Raw.Background}
	}

	out.LevelQP = c.LevelQPs(baseQP, out.Alphas)

	grid, err := hierarchy.ReduceToBlocks(imp, c.cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	out.Map = fromGrid(grid, imp.Width, imp.Height, out.LevelQP)
	out.RateRatio = out.Map.TheoreticalRateRatio(baseQP)
	return out, nil
}

// LevelQPs applies the offsets to baseQP and clips to [QPMin, QPMax].
func (c *Controller) LevelQPs(baseQP int, a Alphas) [geometry.NumLevels]int {
	var q [geometry.NumLevels]int
	base := float64(baseQP)
	q[geometry.Core] = c.clipQP(base - a.Core)
	q[geometry.Context] = c.clipQP(base - a.Context)
	q[geometry.Background] = c.clipQP(base + a.Background)
	return q
}

func (c *Controller) clipQP(v float64) int {
	if math.IsNaN(v) {
		return c.cfg.QPMax
	}
	r := math.Round(v)
	if r < float64(c.cfg.QPMin) {
		return c.cfg.QPMin
	}
	if r > float64(c.cfg.QPMax) {
		return c.cfg.QPMax
	}
	return int(r)
}
