package pipeline

import (
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/hierarchy"
)

// importanceWindow replaces each frame's importance map with the per-pixel
// median of the last size maps. A size of 1 or less passes maps through.
type importanceWindow struct {
	size   int
	recent []*geometry.ImportanceMap
}

func (w *importanceWindow) push(m *geometry.ImportanceMap) (*geometry.ImportanceMap, error) {
	if w.size <= 1 {
		return m, nil
	}
	w.recent = append(w.recent, m)
	if len(w.recent) > w.size {
		w.recent = w.recent[1:]
	}
	return hierarchy.MergeTemporal(w.recent)
}
