package gop

import (
	"fmt"
	"strings"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
)

// Mode is a coding-structure family.
type Mode string

const (
	AllIntra     Mode = "AI"
	RandomAccess Mode = "RA"
	LowDelay     Mode = "LD"
)

// ParseMode accepts the short and long names of each mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AI", "ALL_INTRA":
		return AllIntra, nil
	case "RA", "RANDOM_ACCESS":
		return RandomAccess, nil
	case "LD", "LDP", "LOW_DELAY":
		return LowDelay, nil
	default:
		return "", errors.Newf("unknown coding structure %q", s)
	}
}

// FrameType is the coded picture type.
type FrameType string

const (
	FrameI FrameType = "I"
	FrameP FrameType = "P"
	FrameB FrameType = "B"
)

// FrameInfo describes one frame of the sequence in display order.
type FrameInfo struct {
	Index         int       `json:"index"`
	POC           int       `json:"poc"`
	Type          FrameType `json:"type"`
	TemporalLayer int       `json:"temporal_layer"`
	QPOffset      int       `json:"qp_offset"`
	Refs          []int     `json:"refs"`
	IsKeyframe    bool      `json:"is_keyframe"`
}

// Structure is a coding-structure configuration. Period is the keyframe
// interval for RandomAccess and the segment length reported by Boundaries
// for LowDelay; AllIntra ignores it.
type Structure struct {
	Mode      Mode
	Period    int
	GOPSize   int
	QPOffsets []int
}

// NewStructure returns a structure with the default mini-GOP size and
// hierarchical QP offsets.
func NewStructure(mode Mode, period int) (Structure, error) {
	s := Structure{Mode: mode, Period: period, GOPSize: 16, QPOffsets: []int{1, 2, 3, 4}}
	if err := s.Validate(); err != nil {
		return Structure{}, err
	}
	return s, nil
}

// StructureFromTuning builds a Structure from the tuning config.
func StructureFromTuning(cfg *config.TuningConfig) (Structure, error) {
	mode, err := ParseMode(cfg.GetCodingStructure())
	if err != nil {
		return Structure{}, err
	}
	s := Structure{
		Mode:      mode,
		Period:    cfg.GetIntraPeriod(),
		GOPSize:   cfg.GetGOPSize(),
		QPOffsets: cfg.GetQPOffsetList(),
	}
	if err := s.Validate(); err != nil {
		return Structure{}, err
	}
	return s, nil
}

// Validate rejects a non-positive period for the modes that use one.
func (s Structure) Validate() error {
	switch s.Mode {
	case AllIntra:
		return nil
	case RandomAccess, LowDelay:
		if s.Period <= 0 {
			return errors.Wrapf(errors.ErrInvalidPeriod, "%s period %d", s.Mode, s.Period)
		}
		return nil
	default:
		return errors.Newf("unknown coding structure %q", string(s.Mode))
	}
}

func (s Structure) String() string {
	if s.Mode == AllIntra {
		return string(s.Mode)
	}
	return fmt.Sprintf("%s[%d]", s.Mode, s.Period)
}

// Generate returns one FrameInfo per frame in display order.
func (s Structure) Generate(total int) ([]FrameInfo, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, errors.Newf("negative frame count %d", total)
	}
	frames := make([]FrameInfo, total)
	for i := range frames {
		frames[i] = FrameInfo{Index: i, POC: i}
	}

	switch s.Mode {
	case AllIntra:
		for i := range frames {
			frames[i].Type = FrameI
			frames[i].IsKeyframe = true
		}
	case LowDelay:
		for i := range frames {
			if i == 0 {
				frames[i].Type = FrameI
				frames[i].IsKeyframe = true
				continue
			}
			frames[i].Type = FrameP
			frames[i].Refs = []int{i - 1}
		}
	case RandomAccess:
		s.generateRandomAccess(frames)
	}
	return frames, nil
}

func (s Structure) generateRandomAccess(frames []FrameInfo) {
	total := len(frames)
	gopSize := s.GOPSize
	if gopSize <= 0 {
		gopSize = s.Period
	}
	for key := 0; key < total; key += s.Period {
		frames[key].Type = FrameI
		frames[key].IsKeyframe = true

		next := key + s.Period
		segEnd := min(next, total)
		for i := key + 1; i < segEnd; i++ {
			frames[i].Type = FrameB
			if next < total {
				frames[i].Refs = []int{key, next}
			} else {
				frames[i].Refs = []int{key}
			}
		}
		for lo := key + 1; lo < segEnd; lo += gopSize {
			s.assignLayers(frames, lo, min(lo+gopSize, segEnd), 1)
		}
	}
}

// assignLayers gives the midpoint of [lo,hi) the current layer and recurses
// into both halves, the usual dyadic hierarchical-B layout.
func (s Structure) assignLayers(frames []FrameInfo, lo, hi, layer int) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	frames[mid].TemporalLayer = layer
	frames[mid].QPOffset = s.offsetFor(layer)
	s.assignLayers(frames, lo, mid, layer+1)
	s.assignLayers(frames, mid+1, hi, layer+1)
}

func (s Structure) offsetFor(layer int) int {
	if len(s.QPOffsets) == 0 {
		return 0
	}
	return s.QPOffsets[min(layer-1, len(s.QPOffsets)-1)]
}

// KeyframeIndices lists the frames on which the detector always runs.
func (s Structure) KeyframeIndices(total int) ([]int, error) {
	frames, err := s.Generate(total)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, f := range frames {
		if f.IsKeyframe {
			out = append(out, f.Index)
		}
	}
	return out, nil
}

// Boundary is a half-open [Start,End) range of frames.
type Boundary struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Boundaries splits the sequence into GOPs: one frame each for AllIntra,
// Period frames otherwise.
func (s Structure) Boundaries(total int) ([]Boundary, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	step := s.Period
	if s.Mode == AllIntra {
		step = 1
	}
	var out []Boundary
	for start := 0; start < total; start += step {
		out = append(out, Boundary{Start: start, End: min(start+step, total)})
	}
	return out, nil
}
