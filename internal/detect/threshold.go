package detect

import (
	"context"
	"image"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Threshold finds bright objects: 4-connected regions of pixels whose luma
// is at least Level. Regions smaller than MinArea pixels are ignored. It is
// meant for synthetic sequences and calibration charts.
type Threshold struct {
	Level   uint8
	MinArea int
}

// Detect labels the frame and returns one box per region in scan order.
func (t Threshold) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	if frame == nil {
		return nil, errors.WrapDetection(errors.New("nil frame"), "threshold detector")
	}
	g := geometry.ToGray(frame)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	seen := make([]bool, w*h)
	var out geometry.ROISet
	var stack []int
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapDetection(err, "threshold detector")
		}
		for x := 0; x < w; x++ {
			i := y*w + x
			if seen[i] || g.Pix[y*g.Stride+x] < t.Level {
				continue
			}
			x0, y0, x1, y1, n := x, y, x, y, 0
			stack = append(stack[:0], i)
			seen[i] = true
			for len(stack) > 0 {
				j := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := j%w, j/w
				n++
				x0, y0 = min(x0, px), min(y0, py)
				x1, y1 = max(x1, px), max(y1, py)
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := px+d[0], py+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					k := ny*w + nx
					if !seen[k] && g.Pix[ny*g.Stride+nx] >= t.Level {
						seen[k] = true
						stack = append(stack, k)
					}
				}
			}
			if n >= t.MinArea {
				out = append(out, geometry.NewBox(float64(x0), float64(y0), float64(x1+1), float64(y1+1)))
			}
		}
	}
	return out, nil
}
