package geometry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMotionFieldRegionUniform(t *testing.T) {
	t.Parallel()

	f := UniformMotionField(320, 240, 5, 5)
	require.NoError(t, f.Validate())

	rs, ok := f.Region(NewBox(100, 100, 200, 200))
	require.True(t, ok)
	assert.InDelta(t, 5.0, rs.MeanDX, 1e-12)
	assert.InDelta(t, 5.0, rs.MeanDY, 1e-12)
	assert.InDelta(t, 7.0710678, rs.MeanMagnitude, 1e-6)
	assert.Equal(t, 10000, rs.Pixels)
	assert.InDelta(t, 0.0, f.Variance(), 1e-12)
}

func TestMotionFieldRegionOutside(t *testing.T) {
	t.Parallel()

	f := UniformMotionField(64, 64, 1, 0)
	_, ok := f.Region(NewBox(100, 100, 120, 120))
	assert.False(t, ok)
}

func TestMotionFieldBlockWeights(t *testing.T) {
	t.Parallel()

	// 10x4 frame with 8px cells: cell 0 covers 8x4 pixels, cell 1 covers 2x4.
	f := NewMotionField(10, 4, 8)
	require.Equal(t, 2, f.Cols)
	require.Equal(t, 1, f.Rows)
	f.Set(0, 0, 0, 0)
	f.Set(1, 0, 10, 0)

	rs, ok := f.Region(NewBox(0, 0, 10, 4))
	require.True(t, ok)
	assert.InDelta(t, 2.0, rs.MeanDX, 1e-12)

	// Population variance of dx weighted 32:8 over {0,10} is 16.
	assert.InDelta(t, 16.0, f.Variance(), 1e-9)
	assert.InDelta(t, 2.0, f.MeanMagnitude(), 1e-9)
}

func TestMotionFieldVariancePerPixel(t *testing.T) {
	t.Parallel()

	f := NewMotionField(2, 1, 1)
	f.Set(0, 0, -3, 0)
	f.Set(1, 0, 3, 4)
	// var(dx) = 9, var(dy) = 4
	assert.InDelta(t, 13.0, f.Variance(), 1e-12)
}

func TestMotionFieldDownsample(t *testing.T) {
	t.Parallel()

	f := NewMotionField(4, 2, 1)
	vals := []float64{1, 2, 100, 4, 1, 3, 5, 5}
	for i, v := range vals {
		f.Set(i%4, i/4, v, -v)
	}

	d, err := f.Downsample(2)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Cols)
	assert.Equal(t, 1, d.Rows)
	// cell 0 holds {1,2,1,3} -> median 1.5; cell 1 holds {100,4,5,5} -> 5.
	assert.InDelta(t, 1.5, d.DX[0], 1e-12)
	assert.InDelta(t, 5.0, d.DX[1], 1e-12)
	assert.InDelta(t, -5.0, d.DY[1], 1e-12)

	dx, _ := d.At(3, 1)
	assert.InDelta(t, 5.0, dx, 1e-12)

	_, err = d.Downsample(3)
	assert.Error(t, err)
}

func TestMotionFieldValidate(t *testing.T) {
	t.Parallel()

	var nilField *MotionField
	assert.Error(t, nilField.Validate())

	f := NewMotionField(4, 4, 2)
	f.DX = f.DX[:1]
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%+v", err), "geometry.(*MotionField).Validate", "errors carry the call stack")
}
