package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDetection(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("model timeout")
	err := WrapDetection(base, "frame 4")

	assert.True(t, IsDetectionUnavailable(err))
	assert.False(t, IsMotionUnavailable(err))
	assert.Contains(t, err.Error(), "frame 4")
	assert.Contains(t, err.Error(), "model timeout")
	assert.Nil(t, WrapDetection(nil, "ignored"))
}

func TestSentinelsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrDetectionUnavailable,
		ErrMotionUnavailable,
		ErrInfeasibleNormalization,
		ErrInvalidGeometry,
		ErrInvalidPeriod,
		ErrRetriesExhausted,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestWrapfKeepsSentinel(t *testing.T) {
	t.Parallel()

	err := Wrapf(ErrInvalidPeriod, "period %d", 0)
	assert.True(t, Is(err, ErrInvalidPeriod))
	assert.Equal(t, "period 0: invalid period", err.Error())
}
