package qp

import (
	"fmt"
	"math"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Alphas are the per-level QP offsets. Core and Context lower the QP,
// Background raises it.
type Alphas struct {
	Core       float64 `json:"core"`
	Context    float64 `json:"context"`
	Background float64 `json:"background"`
}

// RawAlphas computes the content-adaptive offsets before normalization,
// each clipped to its configured range.
func RawAlphas(cfg Config, cx Complexity) Alphas {
	core := cfg.BaseCore *
		(1 + cfg.TextureWeight*cx.Texture[geometry.Core]) *
		(1 + cfg.MotionWeight*cx.Motion[geometry.Core])
	ctx := cfg.BaseContext * (1 + cfg.ContextTextureWeight*cx.Texture[geometry.Context])
	bg := cfg.BaseBackground * (1 - cfg.BackgroundTextureWeight*cx.Texture[geometry.Background])
	return Alphas{
		Core:       cfg.CoreRange.clip(core),
		Context:    cfg.ContextRange.clip(ctx),
		Background: cfg.BackgroundRange.clip(bg),
	}
}

// Normalization is the outcome of the bitrate-neutral background solve.
// When Fallback is set, Background carries the raw offset and Err says why.
type Normalization struct {
	Background float64 `json:"background"`
	Fallback   bool    `json:"fallback"`
	Reason     string  `json:"reason,omitempty"`
	Err        error   `json:"-"`
}

func fallback(raw float64, reason string) Normalization {
	return Normalization{
		Background: raw,
		Fallback:   true,
		Reason:     reason,
		Err:        errors.Wrap(errors.ErrInfeasibleNormalization, reason),
	}
}

// Normalize solves
//
//	d_core·2^(-a_core/6) + d_ctx·2^(-a_ctx/6) + d_bg·2^(a_bg/6) = 1
//
// for a_bg. d are the level fractions indexed by geometry.Level. It falls
// back to a.Background when there is no background, the solve has no real
// solution, or the solution lies above bounds.Max. Solutions below
// bounds.Min are kept. A zero bounds leaves the solution unbounded.
func Normalize(d [geometry.NumLevels]float64, a Alphas, bounds Range) Normalization {
	dBG := d[geometry.Background]
	if dBG <= 0 {
		return fallback(a.Background, "no background pixels")
	}
	rest := 1 - d[geometry.Core]*math.Exp2(-a.Core/6) - d[geometry.Context]*math.Exp2(-a.Context/6)
	arg := rest / dBG
	if arg <= 0 || math.IsNaN(arg) || math.IsInf(arg, 0) {
		return fallback(a.Background, "core and context exceed the rate budget")
	}
	bg := 6 * math.Log2(arg)
	if bounds != (Range{}) && bg > bounds.Max {
		return fallback(a.Background, fmt.Sprintf("background alpha %.2f exceeds %.2f", bg, bounds.Max))
	}
	return Normalization{Background: bg}
}

// RateRatio evaluates the area-weighted rate factor Σ d_i·2^(Δ_i/6) of a
// set of offsets. It is 1 for a neutral allocation.
func RateRatio(d [geometry.NumLevels]float64, a Alphas) float64 {
	return d[geometry.Core]*math.Exp2(-a.Core/6) +
		d[geometry.Context]*math.Exp2(-a.Context/6) +
		d[geometry.Background]*math.Exp2(a.Background/6)
}
