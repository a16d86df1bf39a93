package report

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
)

// LevelColors tints each importance level in overlays.
var LevelColors = [geometry.NumLevels]color.RGBA{
	geometry.Background: {R: 0, G: 0, B: 128, A: 255},
	geometry.Context:    {R: 128, G: 128, B: 0, A: 255},
	geometry.Core:       {R: 0, G: 128, B: 0, A: 255},
}

// overlayAlpha is the weight of the tint in the blend.
const overlayAlpha = 0.3

// Overlay blends the level tint of imp over frame. frame may be nil, in
// which case the tint is drawn over black.
func Overlay(frame image.Image, imp *geometry.ImportanceMap) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, imp.Width, imp.Height))
	if frame != nil {
		b := frame.Bounds()
		if b.Dx() != imp.Width || b.Dy() != imp.Height {
			return nil, errors.Newf("frame %dx%d does not match map %dx%d", b.Dx(), b.Dy(), imp.Width, imp.Height)
		}
		draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)
	}
	for y := 0; y < imp.Height; y++ {
		for x := 0; x < imp.Width; x++ {
			tint := LevelColors[imp.At(x, y)]
			i := out.PixOffset(x, y)
			px := out.Pix[i : i+4 : i+4]
			px[0] = blend(px[0], tint.R)
			px[1] = blend(px[1], tint.G)
			px[2] = blend(px[2], tint.B)
			px[3] = 255
		}
	}
	return out, nil
}

func blend(a, b uint8) uint8 {
	return uint8(float64(a)*(1-overlayAlpha) + float64(b)*overlayAlpha + 0.5)
}

// Thumbnail scales img to width pixels, keeping the aspect ratio. Images
// already narrower than width are returned unchanged.
func Thumbnail(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() <= width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SavePNG encodes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create overlay")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
