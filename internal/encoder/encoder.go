// Package encoder turns per-frame QP plans into rate-distortion samples.
//
// VVenC drives the reference encoder binary; RateModel is a deterministic
// closed-form stand-in used for simulation and tests.
package encoder

import (
	"context"
	"time"

	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/qp"
)

// FramePlan is the coding decision for one frame.
type FramePlan struct {
	Info       gop.FrameInfo
	QP         *qp.Map
	Importance *geometry.ImportanceMap
}

// Job is one encode of a sequence at one base QP.
type Job struct {
	Sequence  string
	Input     string // raw 8-bit YUV 4:2:0 file, for binary encoders
	Output    string // bitstream path
	Width     int
	Height    int
	FrameRate int
	Structure gop.Structure
	BaseQP    int
	Frames    []FramePlan
}

// Result is the measured operating point of a Job.
type Result struct {
	Bitrate      float64       `json:"bitrate"` // kbps
	PSNRY        float64       `json:"psnr_y"`
	PSNRU        float64       `json:"psnr_u"`
	PSNRV        float64       `json:"psnr_v"`
	ROIPSNR      float64       `json:"roi_psnr,omitempty"`
	Frames       int           `json:"frames"`
	EncodingTime time.Duration `json:"encoding_time"`
}

// Encoder encodes a Job.
type Encoder interface {
	Encode(ctx context.Context, job Job) (Result, error)
}
