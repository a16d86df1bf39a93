package qp

import (
	"github.com/banshee-data/roiqp/internal/config"
)

// Range is a closed interval used to clip raw alphas.
type Range struct {
	Min float64
	Max float64
}

func (r Range) clip(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Config holds the QP controller parameters.
type Config struct {
	BaseCore       float64
	BaseContext    float64
	BaseBackground float64

	// TextureWeight and MotionWeight scale the core alpha. Context and
	// background use their own texture weights.
	TextureWeight           float64
	MotionWeight            float64
	ContextTextureWeight    float64
	BackgroundTextureWeight float64

	TextureNorm float64
	MotionNorm  float64

	CoreRange       Range
	ContextRange    Range
	BackgroundRange Range

	Normalize bool
	BlockSize int
	QPMin     int
	QPMax     int
}

// ConfigFromTuning builds a Config from the tuning config. The context and
// background texture weights are half the core weight.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	wt := cfg.GetTextureWeight()
	return Config{
		BaseCore:                cfg.GetBaseAlphaCore(),
		BaseContext:             cfg.GetBaseAlphaContext(),
		BaseBackground:          cfg.GetBaseAlphaBackground(),
		TextureWeight:           wt,
		MotionWeight:            cfg.GetMotionWeight(),
		ContextTextureWeight:    0.5 * wt,
		BackgroundTextureWeight: 0.5 * wt,
		TextureNorm:             cfg.GetTextureNorm(),
		MotionNorm:              cfg.GetMotionComplexityNorm(),
		CoreRange:               Range{Min: 2, Max: 15},
		ContextRange:            Range{Min: 1, Max: 10},
		BackgroundRange:         Range{Min: 2, Max: 12},
		Normalize:               cfg.GetNormalizeBitrate(),
		BlockSize:               cfg.GetBlockSize(),
		QPMin:                   cfg.GetQPMin(),
		QPMax:                   cfg.GetQPMax(),
	}
}

// DefaultConfig returns the built-in QP parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}
