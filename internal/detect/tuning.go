package detect

import (
	"net/url"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/httputil"
)

// Luma threshold used when no detector endpoint is configured.
const (
	DefaultThresholdLevel   = 150
	DefaultThresholdMinArea = 64
)

// FromTuning builds the detector chain for cfg. With detector_endpoint set
// frames go to an HTTPDetector using client (http.DefaultClient when nil),
// otherwise to a Threshold detector. The chain filters by
// confidence_threshold, bounds each call by detector_timeout and, when
// detector_rate_limit is positive, caps the request rate.
func FromTuning(cfg *config.TuningConfig, client httputil.HTTPClient) (Detector, error) {
	var d Detector = Threshold{Level: DefaultThresholdLevel, MinArea: DefaultThresholdMinArea}
	if endpoint := cfg.GetDetectorEndpoint(); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.Newf("detector_endpoint %q is not an absolute URL", endpoint)
		}
		d = NewHTTPDetector(endpoint, client)
	}
	d = Filter{Next: d, MinConfidence: cfg.GetConfidenceThreshold()}
	d = Timeout{Next: d, Timeout: cfg.GetDetectorTimeout()}
	if r := cfg.GetDetectorRateLimit(); r > 0 {
		d = NewRateLimited(d, r, 1)
	}
	return d, nil
}
