package hierarchy

import (
	"fmt"
	"sort"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Coverage is the pixel count and share of each level in a map.
type Coverage struct {
	Pixels  [geometry.NumLevels]int     `json:"pixels"`
	Percent [geometry.NumLevels]float64 `json:"percent"`
}

// LevelCoverage computes the coverage of m.
func LevelCoverage(m *geometry.ImportanceMap) Coverage {
	c := Coverage{Pixels: m.Counts()}
	d := m.Fractions()
	for i := range d {
		c.Percent[i] = d[i] * 100
	}
	return c
}

// Add accumulates another frame's pixel counts.
func (c *Coverage) Add(o Coverage) {
	total := 0
	for i := range c.Pixels {
		c.Pixels[i] += o.Pixels[i]
		total += c.Pixels[i]
	}
	for i := range c.Percent {
		if total > 0 {
			c.Percent[i] = float64(c.Pixels[i]) / float64(total) * 100
		}
	}
}

func (c Coverage) String() string {
	return fmt.Sprintf("core=%.1f%% context=%.1f%% background=%.1f%%",
		c.Percent[geometry.Core], c.Percent[geometry.Context], c.Percent[geometry.Background])
}

// MergeTemporal combines same-sized maps pixel by pixel, taking the median
// level. With an even count the upper median is used so a pixel that is
// important in half the frames stays important.
func MergeTemporal(maps []*geometry.ImportanceMap) (*geometry.ImportanceMap, error) {
	if len(maps) == 0 {
		return nil, errors.New("no importance maps to merge")
	}
	w, h := maps[0].Width, maps[0].Height
	for i, m := range maps[1:] {
		if m.Width != w || m.Height != h {
			return nil, errors.Newf("map %d is %dx%d, want %dx%d", i+1, m.Width, m.Height, w, h)
		}
	}
	out := geometry.NewImportanceMap(w, h)
	vals := make([]int, len(maps))
	for p := range out.Labels {
		for i, m := range maps {
			vals[i] = int(m.Labels[p])
		}
		sort.Ints(vals)
		out.Labels[p] = geometry.Level(vals[len(vals)/2])
	}
	return out, nil
}
