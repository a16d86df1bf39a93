package qp

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/hierarchy"
	"github.com/banshee-data/roiqp/internal/testutil"
)

func buildMap(w, h int, rois geometry.ROISet) *geometry.ImportanceMap {
	return hierarchy.NewMapper(hierarchy.DefaultConfig()).Generate(w, h, rois, nil)
}

func TestGenerateSingleCoreBlock(t *testing.T) {
	t.Parallel()

	c := NewController(DefaultConfig())
	rois := testutil.Boxes([4]float64{0, 0, 128, 128})
	imp := buildMap(256, 256, rois)

	out, err := c.Generate(testutil.FlatFrame(256, 256, 100), imp, rois, nil, 32)
	require.NoError(t, err)

	assert.False(t, out.Normalization.Fallback)
	assert.False(t, out.Unnormalized())
	assert.Equal(t, 24, out.LevelQP[geometry.Core])
	assert.Equal(t, 28, out.LevelQP[geometry.Context])
	assert.Greater(t, out.Alphas.Background, 0.0)
	assert.InDelta(t, 1.0, RateRatio(out.Fractions, out.Alphas), 1e-9)

	require.Equal(t, 2, out.Map.Cols)
	require.Equal(t, 2, out.Map.Rows)
	bg := out.LevelQP[geometry.Background]
	assert.Equal(t, []int{24, bg, bg, bg}, out.Map.QP)

	var buf bytes.Buffer
	_, err = out.Map.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("24 %d\n%d %d\n", bg, bg, bg), buf.String())
}

func TestGenerateFallbackFlagsFrame(t *testing.T) {
	t.Parallel()

	c := NewController(DefaultConfig())
	rois := testutil.Boxes([4]float64{0, 0, 64, 64})
	imp := buildMap(64, 64, rois)

	out, err := c.Generate(nil, imp, rois, nil, 30)
	require.NoError(t, err)
	assert.True(t, out.Unnormalized())
	assert.Equal(t, out.Raw.Background, out.Alphas.Background)
	assert.Equal(t, 22, out.Map.At(0, 0))
}

func TestGenerateNormalizationDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Normalize = false
	c := NewController(cfg)
	rois := testutil.Boxes([4]float64{0, 0, 128, 128})
	imp := buildMap(256, 256, rois)

	out, err := c.Generate(nil, imp, rois, nil, 32)
	require.NoError(t, err)
	assert.False(t, out.Unnormalized())
	assert.Equal(t, 38, out.LevelQP[geometry.Background])
}

func TestGenerateSizeMismatch(t *testing.T) {
	t.Parallel()

	c := NewController(DefaultConfig())
	_, err := c.Generate(testutil.FlatFrame(10, 10, 0), geometry.NewImportanceMap(20, 20), nil, nil, 30)
	assert.Error(t, err)
}

// Every generated QP lies in [0,51] whatever the offsets and base QP.
func TestGenerateQPBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		cfg := DefaultConfig()
		cfg.BaseCore = rng.Float64() * 200
		cfg.BaseContext = rng.Float64()*200 - 100
		cfg.BaseBackground = rng.Float64() * 200
		cfg.CoreRange = Range{Min: -500, Max: 500}
		cfg.ContextRange = Range{Min: -500, Max: 500}
		cfg.BackgroundRange = Range{Min: -500, Max: 500}
		cfg.TextureWeight = rng.Float64() * 10
		cfg.MotionWeight = rng.Float64() * 10
		cfg.BlockSize = 16
		c := NewController(cfg)

		x := rng.Float64() * 50
		rois := testutil.Boxes([4]float64{x, x, x + 20 + rng.Float64()*40, x + 30})
		imp := buildMap(96, 64, rois)
		baseQP := rng.Intn(52)

		out, err := c.Generate(testutil.CheckerFrame(96, 64, 1+rng.Intn(4)), imp, rois, []float64{rng.Float64() * 1000}, baseQP)
		require.NoError(t, err)
		for _, q := range out.Map.QP {
			assert.GreaterOrEqual(t, q, 0)
			assert.LessOrEqual(t, q, 51)
		}
	}
}

func TestTheoreticalRateRatio(t *testing.T) {
	t.Parallel()

	m := &Map{Width: 20, Height: 10, BlockSize: 10, Cols: 2, Rows: 1, QP: []int{30, 30}}
	assert.InDelta(t, 1.0, m.TheoreticalRateRatio(30), 1e-12)

	m.QP = []int{24, 36}
	assert.InDelta(t, 0.5*0.5+0.5*2, m.TheoreticalRateRatio(30), 1e-12)
}

func TestStats(t *testing.T) {
	t.Parallel()

	imp := geometry.NewImportanceMap(20, 10)
	imp.FillRect(0, 0, 10, 10, geometry.Core)
	imp.FillRect(10, 0, 12, 10, geometry.Core) // 20 core pixels in the second block
	m := &Map{Width: 20, Height: 10, BlockSize: 10, Cols: 2, Rows: 1, QP: []int{24, 36}}

	s, err := Stats(m, imp)
	require.NoError(t, err)
	core := s[geometry.Core]
	assert.Equal(t, 120, core.Pixels)
	assert.Equal(t, 24, core.MinQP)
	assert.Equal(t, 36, core.MaxQP)
	assert.InDelta(t, (100*24.0+20*36.0)/120, core.MeanQP, 1e-9)
	assert.Greater(t, core.StdQP, 0.0)

	bg := s[geometry.Background]
	assert.Equal(t, 80, bg.Pixels)
	assert.Equal(t, 36.0, bg.MeanQP)
	assert.Zero(t, bg.StdQP)
	assert.Zero(t, s[geometry.Context].Pixels)

	_, err = Stats(m, geometry.NewImportanceMap(5, 5))
	assert.Error(t, err)
}

func TestLevelStatsMerge(t *testing.T) {
	t.Parallel()

	a := LevelStats{Pixels: 100, MeanQP: 24, MinQP: 24, MaxQP: 24}
	b := LevelStats{Pixels: 100, MeanQP: 36, MinQP: 36, MaxQP: 36}
	got := a.Merge(b)
	assert.Equal(t, 200, got.Pixels)
	assert.InDelta(t, 30.0, got.MeanQP, 1e-9)
	assert.InDelta(t, 6.0, got.StdQP, 1e-9)
	assert.Equal(t, 24, got.MinQP)
	assert.Equal(t, 36, got.MaxQP)

	assert.Equal(t, a, a.Merge(LevelStats{}))
	assert.Equal(t, b, LevelStats{}.Merge(b))
}

func TestLevelStatsMergeMatchesStats(t *testing.T) {
	t.Parallel()

	imp := geometry.NewImportanceMap(20, 10)
	imp.FillRect(0, 0, 20, 10, geometry.Core)
	m := &Map{Width: 20, Height: 10, BlockSize: 10, Cols: 2, Rows: 1, QP: []int{24, 36}}
	whole, err := Stats(m, imp)
	require.NoError(t, err)

	left := &Map{Width: 20, Height: 10, BlockSize: 10, Cols: 2, Rows: 1, QP: []int{24, 24}}
	right := &Map{Width: 20, Height: 10, BlockSize: 10, Cols: 2, Rows: 1, QP: []int{36, 36}}
	l, err := Stats(left, imp)
	require.NoError(t, err)
	r, err := Stats(right, imp)
	require.NoError(t, err)
	pooled := l[geometry.Core].Merge(r[geometry.Core])

	assert.InDelta(t, whole[geometry.Core].MeanQP, pooled.MeanQP, 1e-9)
	assert.InDelta(t, whole[geometry.Core].StdQP, pooled.StdQP, 1e-9)
}

func TestUniformStats(t *testing.T) {
	t.Parallel()

	imp := geometry.NewImportanceMap(10, 10)
	imp.FillRect(0, 0, 5, 10, geometry.Context)
	s := UniformStats(imp, 32)
	assert.Equal(t, LevelStats{Pixels: 50, MeanQP: 32, MinQP: 32, MaxQP: 32}, s[geometry.Context])
	assert.Equal(t, 50, s[geometry.Background].Pixels)
	assert.Zero(t, s[geometry.Core].Pixels)
}
