package qp

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roiqp/internal/geometry"
)

// emptyLevelTexture is the texture reported for a level with no pixels.
const emptyLevelTexture = 0.5

// Complexity holds normalised [0,1] texture and motion scalars per level,
// indexed by geometry.Level.
type Complexity struct {
	Texture [geometry.NumLevels]float64 `json:"texture"`
	Motion  [geometry.NumLevels]float64 `json:"motion"`
}

// Laplacian returns the 4-neighbour Laplacian of a gray frame, row-major,
// with replicated borders.
func Laplacian(g *image.Gray) []float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(g.Pix[y*g.Stride+x])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
		}
	}
	return out
}

// TextureComplexity returns, per level, the population variance of the
// Laplacian over that level's pixels divided by norm and clipped to [0,1].
func TextureComplexity(lap []float64, m *geometry.ImportanceMap, norm float64) [geometry.NumLevels]float64 {
	var buckets [geometry.NumLevels][]float64
	for i, l := range m.Labels {
		buckets[l] = append(buckets[l], lap[i])
	}
	var out [geometry.NumLevels]float64
	for l, vals := range buckets {
		if len(vals) == 0 {
			out[l] = emptyLevelTexture
			continue
		}
		_, v := stat.PopMeanVariance(vals, nil)
		out[l] = clip01(v / norm)
	}
	return out
}

// MotionComplexity returns the area-weighted mean box motion divided by
// norm and clipped to [0,1]. Boxes feed both the core and context levels;
// background has no box motion and stays zero.
func MotionComplexity(rois geometry.ROISet, boxMotion []float64, norm float64) [geometry.NumLevels]float64 {
	var out [geometry.NumLevels]float64
	if len(rois) == 0 || len(boxMotion) == 0 {
		return out
	}
	n := min(len(rois), len(boxMotion))
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = rois[i].Area()
	}
	var mean float64
	if floats.Sum(weights) > 0 {
		mean = stat.Mean(boxMotion[:n], weights)
	} else {
		mean = stat.Mean(boxMotion[:n], nil)
	}
	v := clip01(mean / norm)
	out[geometry.Core] = v
	out[geometry.Context] = v
	return out
}

func clip01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
