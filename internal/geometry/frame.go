package geometry

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray returns img as an 8-bit luma image with origin (0,0). Gray inputs
// already at the origin are returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Downscale shrinks a gray frame by an integer factor using bilinear
// filtering.
func Downscale(src *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	w, h := max(b.Dx()/factor, 1), max(b.Dy()/factor, 1)
	out := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), src, b, draw.Src, nil)
	return out
}
