package encoder

import (
	"context"
	"math"
	"time"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/gop"
)

// RateModel is a closed-form encoder. Each block costs 2^((RefQP-QP)/6) of
// the reference rate, scaled by the frame type, and loses PSNRSlope dB per
// QP step above RefQP. Frame PSNR averages block MSE over pixels.
type RateModel struct {
	RefQP        int
	RefKbps      float64
	RefPSNR      float64
	PSNRSlope    float64
	ChromaOffset float64
	TypeWeight   map[gop.FrameType]float64
}

// NewRateModel returns a model calibrated to a 1080p-like sequence.
func NewRateModel() *RateModel {
	return &RateModel{
		RefQP:        32,
		RefKbps:      2000,
		RefPSNR:      36,
		PSNRSlope:    0.4,
		ChromaOffset: 6,
		TypeWeight: map[gop.FrameType]float64{
			gop.FrameI: 4,
			gop.FrameP: 1.2,
			gop.FrameB: 0.8,
		},
	}
}

type frameCost struct {
	rate   float64
	mse    float64
	roiMSE float64
	roiPix int
}

// Encode evaluates the model for every planned frame.
func (r *RateModel) Encode(ctx context.Context, job Job) (Result, error) {
	if len(job.Frames) == 0 {
		return Result{}, errors.Newf("rate model: %s has no frames", job.Sequence)
	}
	start := time.Now()
	var rate, psnr, roiPSNR float64
	var roiFrames int
	for _, fr := range job.Frames {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		c := r.frame(job, fr)
		w := r.TypeWeight[fr.Info.Type]
		if w == 0 {
			w = 1
		}
		rate += w * c.rate
		psnr += mseToPSNR(c.mse)
		if c.roiPix > 0 {
			roiPSNR += mseToPSNR(c.roiMSE)
			roiFrames++
		}
	}
	n := float64(len(job.Frames))
	res := Result{
		Bitrate: r.RefKbps * rate / n,
		PSNRY:   psnr / n,
		Frames:  len(job.Frames),
	}
	res.PSNRU = res.PSNRY + r.ChromaOffset
	res.PSNRV = res.PSNRY + r.ChromaOffset
	res.ROIPSNR = res.PSNRY
	if roiFrames > 0 {
		res.ROIPSNR = roiPSNR / float64(roiFrames)
	}
	res.EncodingTime = time.Since(start)
	return res, nil
}

func (r *RateModel) frame(job Job, fr FramePlan) frameCost {
	if fr.QP == nil {
		q := job.BaseQP + fr.Info.QPOffset
		return frameCost{rate: r.blockRate(q), mse: r.blockMSE(q)}
	}
	m := fr.QP
	var c frameCost
	total := float64(m.Width * m.Height)
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			x0, y0 := col*m.BlockSize, row*m.BlockSize
			x1, y1 := min(x0+m.BlockSize, m.Width), min(y0+m.BlockSize, m.Height)
			pix := (x1 - x0) * (y1 - y0)
			q := m.At(col, row)
			frac := float64(pix) / total
			c.rate += frac * r.blockRate(q)
			c.mse += frac * r.blockMSE(q)
			if fr.Importance != nil {
				if core := fr.Importance.CountsIn(x0, y0, x1, y1)[geometry.Core]; core > 0 {
					c.roiMSE += float64(core) * r.blockMSE(q)
					c.roiPix += core
				}
			}
		}
	}
	if c.roiPix > 0 {
		c.roiMSE /= float64(c.roiPix)
	}
	return c
}

func (r *RateModel) blockRate(q int) float64 {
	return math.Exp2(float64(r.RefQP-q) / 6)
}

// blockMSE is the MSE, relative to a peak of 1, of a block coded at q.
func (r *RateModel) blockMSE(q int) float64 {
	p := r.RefPSNR - r.PSNRSlope*float64(q-r.RefQP)
	return math.Pow(10, -p/10)
}

func mseToPSNR(mse float64) float64 {
	return -10 * math.Log10(mse)
}
