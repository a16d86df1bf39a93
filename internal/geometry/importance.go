package geometry

// Level is the importance tier of a pixel. Higher values take precedence.
type Level uint8

const (
	Background Level = 0
	Context    Level = 1
	Core       Level = 2
)

// NumLevels is the number of importance tiers.
const NumLevels = 3

// Levels lists the tiers in precedence order, highest first.
var Levels = [NumLevels]Level{Core, Context, Background}

func (l Level) String() string {
	switch l {
	case Core:
		return "core"
	case Context:
		return "context"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// ImportanceMap labels every pixel of a frame with exactly one Level.
type ImportanceMap struct {
	Width  int
	Height int
	Labels []Level
}

// NewImportanceMap returns an all-background map.
func NewImportanceMap(width, height int) *ImportanceMap {
	return &ImportanceMap{
		Width:  width,
		Height: height,
		Labels: make([]Level, width*height),
	}
}

// At returns the label of pixel (x, y).
func (m *ImportanceMap) At(x, y int) Level {
	return m.Labels[y*m.Width+x]
}

// FillRect sets every pixel in [x0,x1)x[y0,y1) to l.
func (m *ImportanceMap) FillRect(x0, y0, x1, y1 int, l Level) {
	for y := y0; y < y1; y++ {
		row := m.Labels[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			row[x] = l
		}
	}
}

// PromoteRect raises every pixel in [x0,x1)x[y0,y1) that is currently
// Background to l. Pixels already labelled are left alone.
func (m *ImportanceMap) PromoteRect(x0, y0, x1, y1 int, l Level) {
	for y := y0; y < y1; y++ {
		row := m.Labels[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			if row[x] == Background {
				row[x] = l
			}
		}
	}
}

// Counts returns the number of pixels at each level, indexed by Level.
func (m *ImportanceMap) Counts() [NumLevels]int {
	var c [NumLevels]int
	for _, l := range m.Labels {
		c[l]++
	}
	return c
}

// CountsIn returns the per-level pixel counts inside [x0,x1)x[y0,y1).
func (m *ImportanceMap) CountsIn(x0, y0, x1, y1 int) [NumLevels]int {
	var c [NumLevels]int
	for y := y0; y < y1; y++ {
		row := m.Labels[y*m.Width : (y+1)*m.Width]
		for x := x0; x < x1; x++ {
			c[row[x]]++
		}
	}
	return c
}

// Fractions returns the share of pixels at each level; the three values sum to 1.
func (m *ImportanceMap) Fractions() [NumLevels]float64 {
	var d [NumLevels]float64
	n := len(m.Labels)
	if n == 0 {
		return d
	}
	c := m.Counts()
	for i := range c {
		d[i] = float64(c[i]) / float64(n)
	}
	return d
}
