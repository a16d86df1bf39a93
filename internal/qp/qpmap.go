package qp

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/hierarchy"
)

// Map is a per-block QP map over a Width x Height frame.
type Map struct {
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	BlockSize int   `json:"block_size"`
	Cols      int   `json:"cols"`
	Rows      int   `json:"rows"`
	QP        []int `json:"qp"`
}

// At returns the QP of block (col, row).
func (m *Map) At(col, row int) int {
	return m.QP[row*m.Cols+col]
}

// blockPixels returns the pixel area of block (col, row).
func (m *Map) blockPixels(col, row int) int {
	x0, y0 := col*m.BlockSize, row*m.BlockSize
	return (min(x0+m.BlockSize, m.Width) - x0) * (min(y0+m.BlockSize, m.Height) - y0)
}

// WriteTo writes the map as Rows lines of space-separated QPs, the layout
// accepted by encoder QP-map options.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			if col > 0 {
				k, err := bw.WriteString(" ")
				n += int64(k)
				if err != nil {
					return n, err
				}
			}
			k, err := bw.WriteString(strconv.Itoa(m.At(col, row)))
			n += int64(k)
			if err != nil {
				return n, err
			}
		}
		k, err := bw.WriteString("\n")
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// TheoreticalRateRatio returns Σ area_i·2^((QP_i-base)/6) over blocks with
// area as a fraction of the frame.
func (m *Map) TheoreticalRateRatio(baseQP int) float64 {
	total := float64(m.Width * m.Height)
	if total == 0 {
		return 0
	}
	var ratio float64
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			frac := float64(m.blockPixels(col, row)) / total
			ratio += frac * math.Exp2(float64(m.At(col, row)-baseQP)/6)
		}
	}
	return ratio
}

// LevelStats summarises the QPs applied to the pixels of one level.
type LevelStats struct {
	Pixels int     `json:"pixels"`
	MeanQP float64 `json:"mean_qp"`
	MinQP  int     `json:"min_qp"`
	MaxQP  int     `json:"max_qp"`
	StdQP  float64 `json:"std_qp"`
}

// Stats returns, for each importance level, the distribution of block QPs
// over that level's pixels. A pixel's QP is the QP of its block.
func Stats(m *Map, imp *geometry.ImportanceMap) ([geometry.NumLevels]LevelStats, error) {
	var out [geometry.NumLevels]LevelStats
	if imp.Width != m.Width || imp.Height != m.Height {
		return out, errors.Newf("importance map %dx%d does not match qp map %dx%d", imp.Width, imp.Height, m.Width, m.Height)
	}
	var qps, weights [geometry.NumLevels][]float64
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			x0, y0 := col*m.BlockSize, row*m.BlockSize
			c := imp.CountsIn(x0, y0, min(x0+m.BlockSize, m.Width), min(y0+m.BlockSize, m.Height))
			q := m.At(col, row)
			for l, n := range c {
				if n == 0 {
					continue
				}
				qps[l] = append(qps[l], float64(q))
				weights[l] = append(weights[l], float64(n))
				s := &out[l]
				if s.Pixels == 0 || q < s.MinQP {
					s.MinQP = q
				}
				if s.Pixels == 0 || q > s.MaxQP {
					s.MaxQP = q
				}
				s.Pixels += n
			}
		}
	}
	for l := range out {
		if out[l].Pixels == 0 {
			continue
		}
		mean, variance := stat.PopMeanVariance(qps[l], weights[l])
		out[l].MeanQP = mean
		out[l].StdQP = math.Sqrt(variance)
	}
	return out, nil
}

// Merge pools o into s as if both had been computed over one set of
// pixels.
func (s LevelStats) Merge(o LevelStats) LevelStats {
	if o.Pixels == 0 {
		return s
	}
	if s.Pixels == 0 {
		return o
	}
	n1, n2 := float64(s.Pixels), float64(o.Pixels)
	n := n1 + n2
	mean := (n1*s.MeanQP + n2*o.MeanQP) / n
	sq := (n1*(s.StdQP*s.StdQP+s.MeanQP*s.MeanQP) + n2*(o.StdQP*o.StdQP+o.MeanQP*o.MeanQP)) / n
	return LevelStats{
		Pixels: s.Pixels + o.Pixels,
		MeanQP: mean,
		MinQP:  min(s.MinQP, o.MinQP),
		MaxQP:  max(s.MaxQP, o.MaxQP),
		StdQP:  math.Sqrt(math.Max(sq-mean*mean, 0)),
	}
}

// UniformStats is Stats for a frame coded at a single QP.
func UniformStats(imp *geometry.ImportanceMap, q int) [geometry.NumLevels]LevelStats {
	var out [geometry.NumLevels]LevelStats
	for l, n := range imp.Counts() {
		if n > 0 {
			out[l] = LevelStats{Pixels: n, MeanQP: float64(q), MinQP: q, MaxQP: q}
		}
	}
	return out
}

// fromGrid assigns each block the QP of its majority level.
func fromGrid(g *hierarchy.BlockGrid, width, height int, levelQP [geometry.NumLevels]int) *Map {
	m := &Map{
		Width:     width,
		Height:    height,
		BlockSize: g.BlockSize,
		Cols:      g.Cols,
		Rows:      g.Rows,
		QP:        make([]int, len(g.Levels)),
	}
	for i, l := range g.Levels {
		m.QP[i] = levelQP[l]
	}
	return m
}
