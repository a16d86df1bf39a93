package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/testutil"
)

func TestRingWidth(t *testing.T) {
	t.Parallel()

	m := NewMapper(DefaultConfig())
	testCases := []struct {
		name   string
		area   float64
		motion float64
		want   float64
	}{
		{name: "proportional", area: 10000, motion: 0, want: 20},
		{name: "floor", area: 100, motion: 0, want: 10},
		{name: "ceiling", area: 1e6, motion: 0, want: 50},
		{name: "motion scaled", area: 10000, motion: 10, want: 26},
		{name: "motion capped", area: 10000, motion: 100, want: 40},
		{name: "ceiling then motion", area: 1e6, motion: 100, want: 100},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, m.RingWidth(tc.area, tc.motion), 1e-9)
		})
	}
}

func TestGenerateEmpty(t *testing.T) {
	t.Parallel()

	out := NewMapper(DefaultConfig()).Generate(64, 48, nil, nil)
	c := out.Counts()
	assert.Equal(t, 64*48, c[geometry.Background])
	assert.Zero(t, c[geometry.Core])
	assert.Zero(t, c[geometry.Context])
}

func TestGenerateSingleBox(t *testing.T) {
	t.Parallel()

	out := NewMapper(DefaultConfig()).Generate(640, 480, testutil.Boxes([4]float64{100, 100, 200, 200}), nil)

	assert.Equal(t, geometry.Core, out.At(100, 100))
	assert.Equal(t, geometry.Core, out.At(199, 199))
	assert.Equal(t, geometry.Context, out.At(80, 150))     // ring of 20
	assert.Equal(t, geometry.Context, out.At(219, 219))    // far ring corner
	assert.Equal(t, geometry.Background, out.At(79, 150))  // just outside ring
	assert.Equal(t, geometry.Background, out.At(220, 150)) // just outside ring

	c := out.Counts()
	assert.Equal(t, 100*100, c[geometry.Core])
	assert.Equal(t, 140*140-100*100, c[geometry.Context])
}

func TestGenerateClipsToFrame(t *testing.T) {
	t.Parallel()

	out := NewMapper(DefaultConfig()).Generate(100, 100, testutil.Boxes([4]float64{-20, 80, 30, 130}), nil)
	assert.Equal(t, geometry.Core, out.At(0, 99))
	c := out.Counts()
	assert.Equal(t, 30*20, c[geometry.Core])
}

// CORE wins over CONTEXT regardless of box order.
func TestGeneratePrecedenceOrderIndependent(t *testing.T) {
	t.Parallel()

	boxes := testutil.Boxes(
		[4]float64{50, 50, 150, 150},
		[4]float64{140, 60, 260, 200},
		[4]float64{100, 180, 160, 240},
	)
	motion := []float64{0, 15, 4}
	m := NewMapper(DefaultConfig())

	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	var first *geometry.ImportanceMap
	for _, perm := range perms {
		rois := make(geometry.ROISet, len(perm))
		mot := make([]float64, len(perm))
		for i, j := range perm {
			rois[i] = boxes[j]
			mot[i] = motion[j]
		}
		out := m.Generate(320, 280, rois, mot)
		for _, b := range boxes {
			x0, y0, x1, y1 := b.PixelBounds(320, 280)
			c := out.CountsIn(x0, y0, x1, y1)
			assert.Equal(t, (x1-x0)*(y1-y0), c[geometry.Core], "perm %v box %s", perm, b)
		}
		if first == nil {
			first = out
			continue
		}
		assert.Equal(t, first.Labels, out.Labels, "perm %v differs", perm)
	}
}

func TestGenerateNestedBoxes(t *testing.T) {
	t.Parallel()

	outer := [4]float64{100, 100, 300, 300}
	inner := [4]float64{150, 150, 200, 200}
	out := NewMapper(DefaultConfig()).Generate(640, 480, testutil.Boxes(inner, outer), nil)

	x0, y0, x1, y1 := geometry.NewBox(100, 100, 300, 300).PixelBounds(640, 480)
	c := out.CountsIn(x0, y0, x1, y1)
	assert.Equal(t, 200*200, c[geometry.Core])
	assert.Zero(t, c[geometry.Context])

	// Only the outer ring (40px) contributes context.
	all := out.Counts()
	assert.Equal(t, 280*280-200*200, all[geometry.Context])
}

func TestBoxMotion(t *testing.T) {
	t.Parallel()

	rois := testutil.Boxes([4]float64{0, 0, 10, 10}, [4]float64{200, 200, 210, 210})
	got := BoxMotion(rois, geometry.UniformMotionField(100, 100, 3, 4))
	require.Len(t, got, 2)
	assert.InDelta(t, 5.0, got[0], 1e-12)
	assert.Zero(t, got[1], "box outside the field")

	assert.Equal(t, []float64{0, 0}, BoxMotion(rois, nil))
}
