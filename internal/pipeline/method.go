package pipeline

import (
	"strings"

	"github.com/banshee-data/roiqp/internal/errors"
)

// Method selects which stages of the pipeline are active for a run.
type Method struct {
	Name string `json:"name"`
	// ROI enables detection and per-block QP maps. Without it every frame
	// is coded at the uniform base QP.
	ROI bool `json:"roi"`
	// Propagate carries ROIs between detections using motion. Without it
	// the detector runs on every frame.
	Propagate bool `json:"propagate"`
	// Hierarchical adds the context ring. Without it the map has only
	// core and background.
	Hierarchical bool `json:"hierarchical"`
}

func (m Method) String() string { return m.Name }

var (
	Baseline     = Method{Name: "baseline"}
	ROIOnly      = Method{Name: "roi", ROI: true}
	Temporal     = Method{Name: "temporal", ROI: true, Propagate: true}
	Hierarchical = Method{Name: "hierarchical", ROI: true, Hierarchical: true}
	Full         = Method{Name: "full", ROI: true, Propagate: true, Hierarchical: true}
)

// Methods lists the built-in methods in ablation order.
func Methods() []Method {
	return []Method{Baseline, ROIOnly, Temporal, Hierarchical, Full}
}

// ParseMethod looks a method up by name.
func ParseMethod(name string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return Method{}, errors.Newf("unknown method %q", name)
}

// ParseMethods parses a comma separated method list.
func ParseMethods(list string) ([]Method, error) {
	var out []Method
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMethod(part)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, errors.New("no methods given")
	}
	return out, nil
}
