package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roiqp/internal/errors"
)

// MotionField is a displacement field over a width x height frame, stored
// on a grid of BlockSize x BlockSize cells (BlockSize 1 is per pixel).
// Edge cells are truncated to the frame. It is read-only once built.
type MotionField struct {
	Width     int
	Height    int
	BlockSize int
	Cols      int
	Rows      int
	DX        []float64
	DY        []float64
}

// NewMotionField allocates a zero field with the given cell size.
func NewMotionField(width, height, blockSize int) *MotionField {
	if blockSize < 1 {
		blockSize = 1
	}
	cols := (width + blockSize - 1) / blockSize
	rows := (height + blockSize - 1) / blockSize
	return &MotionField{
		Width:     width,
		Height:    height,
		BlockSize: blockSize,
		Cols:      cols,
		Rows:      rows,
		DX:        make([]float64, cols*rows),
		DY:        make([]float64, cols*rows),
	}
}

// UniformMotionField returns a per-pixel field where every vector is (dx, dy).
func UniformMotionField(width, height int, dx, dy float64) *MotionField {
	f := NewMotionField(width, height, 1)
	for i := range f.DX {
		f.DX[i] = dx
		f.DY[i] = dy
	}
	return f
}

// Validate checks the grid dimensions agree with the vector slices.
func (f *MotionField) Validate() error {
	if f == nil {
		return errors.New("nil motion field")
	}
	if f.Width <= 0 || f.Height <= 0 || f.BlockSize < 1 {
		return errors.Newf("motion field dimensions %dx%d block %d", f.Width, f.Height, f.BlockSize)
	}
	n := f.Cols * f.Rows
	if len(f.DX) != n || len(f.DY) != n {
		return errors.Newf("motion field has %d/%d vectors, want %d", len(f.DX), len(f.DY), n)
	}
	return nil
}

// Set assigns the vector of cell (col, row).
func (f *MotionField) Set(col, row int, dx, dy float64) {
	i := row*f.Cols + col
	f.DX[i] = dx
	f.DY[i] = dy
}

// At returns the vector covering pixel (x, y).
func (f *MotionField) At(x, y int) (float64, float64) {
	i := (y/f.BlockSize)*f.Cols + x/f.BlockSize
	return f.DX[i], f.DY[i]
}

// cellWeight is the pixel overlap of cell (col,row) with [x0,x1)x[y0,y1).
func (f *MotionField) cellWeight(col, row, x0, y0, x1, y1 int) float64 {
	cx0, cy0 := col*f.BlockSize, row*f.BlockSize
	cx1, cy1 := min(cx0+f.BlockSize, f.Width), min(cy0+f.BlockSize, f.Height)
	w := min(cx1, x1) - max(cx0, x0)
	h := min(cy1, y1) - max(cy0, y0)
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(w * h)
}

// RegionStats summarises the vectors inside a box.
type RegionStats struct {
	MeanDX        float64
	MeanDY        float64
	MeanMagnitude float64
	Pixels        int
}

// Region returns the pixel-weighted mean displacement and mean magnitude
// over the box interior. ok is false when the box covers no pixels.
func (f *MotionField) Region(b BoundingBox) (RegionStats, bool) {
	x0, y0, x1, y1 := b.PixelBounds(f.Width, f.Height)
	if x1 <= x0 || y1 <= y0 {
		return RegionStats{}, false
	}
	var sx, sy, sm, sw float64
	for row := y0 / f.BlockSize; row <= (y1-1)/f.BlockSize; row++ {
		for col := x0 / f.BlockSize; col <= (x1-1)/f.BlockSize; col++ {
			w := f.cellWeight(col, row, x0, y0, x1, y1)
			if w == 0 {
				continue
			}
			i := row*f.Cols + col
			sx += w * f.DX[i]
			sy += w * f.DY[i]
			sm += w * math.Hypot(f.DX[i], f.DY[i])
			sw += w
		}
	}
	return RegionStats{
		MeanDX:        sx / sw,
		MeanDY:        sy / sw,
		MeanMagnitude: sm / sw,
		Pixels:        (x1 - x0) * (y1 - y0),
	}, true
}

// weights returns the pixel count of every cell.
func (f *MotionField) weights() []float64 {
	ws := make([]float64, len(f.DX))
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			ws[row*f.Cols+col] = f.cellWeight(col, row, 0, 0, f.Width, f.Height)
		}
	}
	return ws
}

// Variance returns the total (dx plus dy) population variance of the field,
// weighted by the pixels each cell covers, in px².
func (f *MotionField) Variance() float64 {
	if len(f.DX) == 0 {
		return 0
	}
	var ws []float64
	if f.BlockSize > 1 {
		ws = f.weights()
	}
	_, vx := stat.PopMeanVariance(f.DX, ws)
	_, vy := stat.PopMeanVariance(f.DY, ws)
	return vx + vy
}

// MeanMagnitude returns the pixel-weighted mean vector length over the frame.
func (f *MotionField) MeanMagnitude() float64 {
	if len(f.DX) == 0 {
		return 0
	}
	mags := make([]float64, len(f.DX))
	for i := range mags {
		mags[i] = math.Hypot(f.DX[i], f.DY[i])
	}
	var ws []float64
	if f.BlockSize > 1 {
		ws = f.weights()
	}
	return stat.Mean(mags, ws)
}

// Downsample reduces the field to cells of blockSize pixels, taking the
// per-component median of the source vectors in each cell. blockSize must
// be a multiple of the current cell size.
func (f *MotionField) Downsample(blockSize int) (*MotionField, error) {
	if blockSize < f.BlockSize || blockSize%f.BlockSize != 0 {
		return nil, errors.Newf("block size %d is not a multiple of %d", blockSize, f.BlockSize)
	}
	out := NewMotionField(f.Width, f.Height, blockSize)
	ratio := blockSize / f.BlockSize
	xs := make([]float64, 0, ratio*ratio)
	ys := make([]float64, 0, ratio*ratio)
	for row := 0; row < out.Rows; row++ {
		for col := 0; col < out.Cols; col++ {
			xs, ys = xs[:0], ys[:0]
			for r := row * ratio; r < min((row+1)*ratio, f.Rows); r++ {
				for c := col * ratio; c < min((col+1)*ratio, f.Cols); c++ {
					xs = append(xs, f.DX[r*f.Cols+c])
					ys = append(ys, f.DY[r*f.Cols+c])
				}
			}
			out.Set(col, row, median(xs), median(ys))
		}
	}
	return out, nil
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
