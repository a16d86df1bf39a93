package hierarchy

import (
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// BlockGrid is the importance level of every coding block. Edge blocks are
// truncated to the frame.
type BlockGrid struct {
	BlockSize int
	Cols      int
	Rows      int
	Levels    []geometry.Level
}

// At returns the level of block (col, row).
func (g *BlockGrid) At(col, row int) geometry.Level {
	return g.Levels[row*g.Cols+col]
}

// ReduceToBlocks assigns every block the level covering most of its
// pixels. Ties go to the more important level.
func ReduceToBlocks(m *geometry.ImportanceMap, blockSize int) (*BlockGrid, error) {
	if blockSize <= 0 {
		return nil, errors.Newf("block size must be positive, got %d", blockSize)
	}
	g := &BlockGrid{
		BlockSize: blockSize,
		Cols:      (m.Width + blockSize - 1) / blockSize,
		Rows:      (m.Height + blockSize - 1) / blockSize,
	}
	g.Levels = make([]geometry.Level, g.Cols*g.Rows)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			x0, y0 := col*blockSize, row*blockSize
			x1, y1 := min(x0+blockSize, m.Width), min(y0+blockSize, m.Height)
			g.Levels[row*g.Cols+col] = majority(m.CountsIn(x0, y0, x1, y1))
		}
	}
	return g, nil
}

func majority(counts [geometry.NumLevels]int) geometry.Level {
	best := geometry.Levels[0]
	for _, l := range geometry.Levels[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}
