package propagation

// Stats counts what the propagator did over one sequence.
type Stats struct {
	Frames            int            `json:"frames"`
	Detections        int            `json:"detections"`
	Propagations      int            `json:"propagations"`
	DetectionFailures int            `json:"detection_failures"`
	ByReason          map[Reason]int `json:"by_reason"`
}

func newStats() Stats {
	return Stats{ByReason: make(map[Reason]int)}
}

func (s Stats) clone() Stats {
	c := s
	c.ByReason = make(map[Reason]int, len(s.ByReason))
	for k, v := range s.ByReason {
		c.ByReason[k] = v
	}
	return c
}

// Triggered returns the detections caused by the re-detection predicate.
func (s Stats) Triggered() int {
	return s.ByReason[ReasonBoxMotion] + s.ByReason[ReasonDivergence] + s.ByReason[ReasonFieldVariance]
}

// DetectionReduction is the percentage of frames that did not run the
// detector.
func (s Stats) DetectionReduction() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Frames-s.Detections) / float64(s.Frames) * 100
}
