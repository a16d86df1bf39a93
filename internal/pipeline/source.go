package pipeline

import (
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// Source is a random-access sequence of equally sized frames. Sources must
// be safe for concurrent use since a sweep may encode one sequence with
// several methods at once.
type Source interface {
	Name() string
	Size() (width, height int)
	Len() int
	Frame(i int) (image.Image, error)
}

// fileBacked is implemented by sources that can be handed to an encoder
// binary directly.
type fileBacked interface {
	Path() string
}

// truthSource is implemented by sources that know where their objects are.
type truthSource interface {
	Truth(i int) geometry.ROISet
}

// matchTruth returns the summed best-match IoU of every truth box against
// rois, and the number of truth boxes.
func matchTruth(truth, rois geometry.ROISet) (float64, int) {
	var sum float64
	for _, t := range truth {
		best := 0.0
		for _, r := range rois {
			best = max(best, t.IoU(r))
		}
		sum += best
	}
	return sum, len(truth)
}

// YUVSource reads the luma plane of an 8-bit 4:2:0 planar file.
type YUVSource struct {
	name   string
	path   string
	width  int
	height int
	frames int
	f      *os.File
}

// OpenYUV opens path as a width x height I420 file.
func OpenYUV(path string, width, height int) (*YUVSource, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Newf("invalid frame size %dx%d", width, height)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open yuv")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat yuv")
	}
	frameBytes := int64(width*height) * 3 / 2
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &YUVSource{
		name:   name,
		path:   path,
		width:  width,
		height: height,
		frames: int(st.Size() / frameBytes),
		f:      f,
	}, nil
}

func (s *YUVSource) Name() string              { return s.name }
func (s *YUVSource) Size() (int, int)          { return s.width, s.height }
func (s *YUVSource) Len() int                  { return s.frames }
func (s *YUVSource) Path() string              { return s.path }
func (s *YUVSource) Close() error              { return s.f.Close() }
func (s *YUVSource) frameBytes() int64         { return int64(s.width*s.height) * 3 / 2 }
func (s *YUVSource) offset(i int) (int64, int) { return int64(i) * s.frameBytes(), s.width * s.height }

// Frame returns the luma plane of frame i.
func (s *YUVSource) Frame(i int) (image.Image, error) {
	if i < 0 || i >= s.frames {
		return nil, errors.Newf("frame %d out of range [0,%d)", i, s.frames)
	}
	off, n := s.offset(i)
	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	if _, err := s.f.ReadAt(img.Pix[:n], off); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read frame %d", i)
	}
	return img, nil
}

// ImageDirSource reads numbered JPEG or PNG files from a directory, in
// lexical order, the layout of MOT-style img1/ folders.
type ImageDirSource struct {
	name   string
	files  []string
	width  int
	height int
}

// OpenImageDir lists dir and reads the size of its first image.
func OpenImageDir(dir string) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read image dir")
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errors.Newf("no images in %s", dir)
	}
	sort.Strings(files)
	f, err := os.Open(files[0])
	if err != nil {
		return nil, errors.Wrap(err, "open first image")
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", files[0])
	}
	name := filepath.Base(dir)
	if name == "img1" {
		name = filepath.Base(filepath.Dir(dir))
	}
	return &ImageDirSource{name: name, files: files, width: cfg.Width, height: cfg.Height}, nil
}

func (s *ImageDirSource) Name() string     { return s.name }
func (s *ImageDirSource) Size() (int, int) { return s.width, s.height }
func (s *ImageDirSource) Len() int         { return len(s.files) }

// Frame decodes image i.
func (s *ImageDirSource) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(s.files) {
		return nil, errors.Newf("frame %d out of range [0,%d)", i, len(s.files))
	}
	f, err := os.Open(s.files[i])
	if err != nil {
		return nil, errors.Wrap(err, "open frame")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.files[i])
	}
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return nil, errors.Newf("%s is %dx%d, want %dx%d", s.files[i], b.Dx(), b.Dy(), s.width, s.height)
	}
	return img, nil
}

// Object is a rectangle moving at constant velocity in a Synthetic
// sequence.
type Object struct {
	Box    geometry.BoundingBox
	VX, VY float64
}

// Synthetic renders bright textured objects over a dim textured
// background. It needs no input files and its ground truth is exact, which
// makes it the default for simulations and tests.
type Synthetic struct {
	Label   string
	Width   int
	Height  int
	Frames  int
	Objects []Object
}

// DefaultSynthetic returns a 640x360 sequence with three objects.
func DefaultSynthetic(frames int) *Synthetic {
	return &Synthetic{
		Label:  "synthetic",
		Width:  640,
		Height: 360,
		Frames: frames,
		Objects: []Object{
			{Box: geometry.NewBox(40, 60, 120, 200), VX: 3, VY: 0.5},
			{Box: geometry.NewBox(300, 150, 360, 210), VX: -2, VY: 1},
			{Box: geometry.NewBox(480, 40, 600, 110), VX: 0, VY: 2},
		},
	}
}

func (s *Synthetic) Name() string     { return s.Label }
func (s *Synthetic) Size() (int, int) { return s.Width, s.Height }
func (s *Synthetic) Len() int         { return s.Frames }

// Truth returns the clipped object boxes of frame i.
func (s *Synthetic) Truth(i int) geometry.ROISet {
	out := make(geometry.ROISet, 0, len(s.Objects))
	for _, o := range s.Objects {
		b := o.Box.Translate(o.VX*float64(i), o.VY*float64(i)).Clip(s.Width, s.Height)
		if b.Valid() {
			out = append(out, b)
		}
	}
	return out
}

// Frame renders frame i.
func (s *Synthetic) Frame(i int) (image.Image, error) {
	if i < 0 || i >= s.Frames {
		return nil, errors.Newf("frame %d out of range [0,%d)", i, s.Frames)
	}
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			img.Pix[y*img.Stride+x] = uint8(40 + (x*7+y*13)%32)
		}
	}
	for _, o := range s.Objects {
		ox, oy := o.VX*float64(i), o.VY*float64(i)
		b := o.Box.Translate(ox, oy)
		x0, y0, x1, y1 := b.Clip(s.Width, s.Height).PixelBounds(s.Width, s.Height)
		bx, by := int(b.X1), int(b.Y1)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				img.Pix[y*img.Stride+x] = uint8(200 + ((x-bx)*3+(y-by)*5)%48)
			}
		}
	}
	return img, nil
}
