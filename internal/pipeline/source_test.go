package pipeline

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/testutil"
)

func TestSyntheticFrame(t *testing.T) {
	s := &Synthetic{
		Label:   "one",
		Width:   64,
		Height:  32,
		Frames:  4,
		Objects: []Object{{Box: geometry.NewBox(10, 8, 20, 16), VX: 2}},
	}
	img, err := s.Frame(1)
	require.NoError(t, err)
	g := img.(*image.Gray)

	assert.GreaterOrEqual(t, g.GrayAt(12, 10).Y, uint8(200), "object pixel")
	assert.Less(t, g.GrayAt(5, 5).Y, uint8(80), "background pixel")
	assert.Less(t, g.GrayAt(11, 10).Y, uint8(80), "object has moved right by two")

	truth := s.Truth(1)
	require.Len(t, truth, 1)
	assert.Equal(t, 12.0, truth[0].X1)
	assert.Equal(t, 22.0, truth[0].X2)

	_, err = s.Frame(4)
	assert.Error(t, err)
}

func TestSyntheticTruthDropsExitedObjects(t *testing.T) {
	s := &Synthetic{
		Width:   32,
		Height:  32,
		Frames:  10,
		Objects: []Object{{Box: geometry.NewBox(0, 0, 8, 8), VX: -10}},
	}
	assert.Len(t, s.Truth(0), 1)
	assert.Empty(t, s.Truth(1))
}

func TestMatchTruth(t *testing.T) {
	truth := geometry.ROISet{geometry.NewBox(0, 0, 10, 10), geometry.NewBox(50, 50, 60, 60)}
	rois := geometry.ROISet{geometry.NewBox(0, 0, 10, 5), geometry.NewBox(0, 0, 10, 10)}

	sum, n := matchTruth(truth, rois)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 1.0, sum, 1e-12, "first box matched exactly, second missed")

	sum, n = matchTruth(truth, nil)
	assert.Equal(t, 2, n)
	assert.Zero(t, sum)

	_, n = matchTruth(nil, rois)
	assert.Zero(t, n)
}

func TestYUVSource(t *testing.T) {
	const w, h = 4, 2
	path := filepath.Join(t.TempDir(), "clip_4x2.yuv")
	frame := w * h * 3 / 2
	data := make([]byte, 2*frame)
	for i := 0; i < w*h; i++ {
		data[i] = 10
		data[frame+i] = 20
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := OpenYUV(path, w, h)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, "clip_4x2", src.Name())
	assert.Equal(t, 2, src.Len())
	assert.Equal(t, path, src.Path())

	img, err := src.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(20), img.(*image.Gray).GrayAt(3, 1).Y)

	_, err = src.Frame(2)
	assert.Error(t, err)
}

func TestOpenYUVInvalid(t *testing.T) {
	_, err := OpenYUV(filepath.Join(t.TempDir(), "missing.yuv"), 4, 2)
	assert.Error(t, err)
	_, err = OpenYUV("x.yuv", 0, 2)
	assert.Error(t, err)
}

func TestImageDirSource(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "MOT17-02", "img1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i, v := range []uint8{30, 90} {
		f, err := os.Create(filepath.Join(dir, []string{"000001.png", "000002.png"}[i]))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, testutil.FlatFrame(8, 6, v)))
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	src, err := OpenImageDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "MOT17-02", src.Name())
	assert.Equal(t, 2, src.Len())
	w, h := src.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)

	img, err := src.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(90), geometry.ToGray(img).GrayAt(0, 0).Y)
}

func TestImageDirSourceEmpty(t *testing.T) {
	_, err := OpenImageDir(t.TempDir())
	assert.Error(t, err)
}

func TestParseMethods(t *testing.T) {
	ms, err := ParseMethods("baseline, FULL,,temporal")
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, Baseline, ms[0])
	assert.Equal(t, Full, ms[1])
	assert.Equal(t, Temporal, ms[2])

	_, err = ParseMethods("roi,bogus")
	assert.Error(t, err)
	_, err = ParseMethods(" , ")
	assert.Error(t, err)
}
