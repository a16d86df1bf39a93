// Package motion estimates block motion fields between consecutive frames.
package motion

import (
	"context"
	"image"
	"math"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Estimator computes the motion of prev's content into cur.
type Estimator interface {
	Estimate(ctx context.Context, prev, cur image.Image) (*geometry.MotionField, error)
}

// BlockMatcher is an exhaustive sum-of-absolute-differences block matcher.
// Blocks of prev are searched for in cur within ±SearchRange pixels. With
// Scale > 1 both frames are downscaled first and the vectors scaled back,
// trading precision for speed on large frames. With Smoothing > 1 every
// Smoothing x Smoothing group of blocks is replaced by its median vector.
type BlockMatcher struct {
	BlockSize   int
	SearchRange int
	Scale       int
	Smoothing   int
}

// NewBlockMatcher returns a matcher using the tuning block size, search
// range and smoothing at full resolution.
func NewBlockMatcher(cfg *config.TuningConfig) *BlockMatcher {
	return &BlockMatcher{
		BlockSize:   cfg.GetMotionBlockSize(),
		SearchRange: cfg.GetMotionSearchRange(),
		Scale:       1,
		Smoothing:   cfg.GetMotionSmoothing(),
	}
}

// Estimate returns a field with cells of BlockSize·Scale·Smoothing pixels over the
// full-resolution frame. Missing or mismatched frames are reported as
// motion unavailable.
func (m *BlockMatcher) Estimate(ctx context.Context, prev, cur image.Image) (*geometry.MotionField, error) {
	if prev == nil || cur == nil {
		return nil, errors.Wrap(errors.ErrMotionUnavailable, "no previous frame")
	}
	pb, cb := prev.Bounds(), cur.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return nil, errors.Wrapf(errors.ErrMotionUnavailable, "frame size changed from %dx%d to %dx%d",
			pb.Dx(), pb.Dy(), cb.Dx(), cb.Dy())
	}
	if m.BlockSize <= 0 || m.SearchRange < 0 {
		return nil, errors.Newf("invalid block matcher: block %d range %d", m.BlockSize, m.SearchRange)
	}
	scale := max(m.Scale, 1)
	p := geometry.Downscale(geometry.ToGray(prev), scale)
	c := geometry.Downscale(geometry.ToGray(cur), scale)

	field := geometry.NewMotionField(pb.Dx(), pb.Dy(), m.BlockSize*scale)
	w, h := p.Bounds().Dx(), p.Bounds().Dy()
	for row := 0; row < field.Rows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y0 := row * m.BlockSize
		if y0 >= h {
			break
		}
		y1 := min(y0+m.BlockSize, h)
		for col := 0; col < field.Cols; col++ {
			x0 := col * m.BlockSize
			if x0 >= w {
				break
			}
			x1 := min(x0+m.BlockSize, w)
			dx, dy := m.search(p, c, x0, y0, x1, y1)
			field.Set(col, row, float64(dx*scale), float64(dy*scale))
		}
	}
	if m.Smoothing > 1 {
		return field.Downsample(field.BlockSize * m.Smoothing)
	}
	return field, nil
}

// search returns the displacement with the lowest SAD. Ties keep the
// shorter vector so static content reports zero motion.
func (m *BlockMatcher) search(p, c *image.Gray, x0, y0, x1, y1 int) (int, int) {
	w, h := c.Bounds().Dx(), c.Bounds().Dy()
	bestDX, bestDY := 0, 0
	best := sad(p, c, x0, y0, x1, y1, 0, 0)
	bestLen := 0
	r := m.SearchRange
	for dy := -r; dy <= r; dy++ {
		if y0+dy < 0 || y1+dy > h {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			if x0+dx < 0 || x1+dx > w || (dx == 0 && dy == 0) {
				continue
			}
			s := sad(p, c, x0, y0, x1, y1, dx, dy)
			l := dx*dx + dy*dy
			if s < best || (s == best && l < bestLen) {
				best, bestLen, bestDX, bestDY = s, l, dx, dy
			}
		}
	}
	return bestDX, bestDY
}

func sad(p, c *image.Gray, x0, y0, x1, y1, dx, dy int) int {
	var total int
	for y := y0; y < y1; y++ {
		pr := p.Pix[y*p.Stride:]
		cr := c.Pix[(y+dy)*c.Stride:]
		for x := x0; x < x1; x++ {
			d := int(pr[x]) - int(cr[x+dx])
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return total
}

// Summary describes a field for logs and reports.
type Summary struct {
	MeanMagnitude float64 `json:"mean_magnitude"`
	MaxMagnitude  float64 `json:"max_magnitude"`
	Variance      float64 `json:"variance"`
}

// Summarize returns the magnitude statistics of f.
func Summarize(f *geometry.MotionField) Summary {
	s := Summary{MeanMagnitude: f.MeanMagnitude(), Variance: f.Variance()}
	for i := range f.DX {
		s.MaxMagnitude = math.Max(s.MaxMagnitude, math.Hypot(f.DX[i], f.DY[i]))
	}
	return s
}
