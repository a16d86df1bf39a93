package detect

import (
	"context"
	"image"

	"golang.org/x/time/rate"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// RateLimited caps the request rate to Next, typically a shared inference
// service used by several sweep workers.
type RateLimited struct {
	Next    Detector
	Limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls with the given burst.
func NewRateLimited(next Detector, perSecond float64, burst int) *RateLimited {
	return &RateLimited{Next: next, Limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Detect waits for a token and calls Next.
func (r *RateLimited) Detect(ctx context.Context, frame image.Image) (geometry.ROISet, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return nil, errors.WrapDetection(err, "rate limit")
	}
	return r.Next.Detect(ctx, frame)
}
