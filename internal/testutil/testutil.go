// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic frames, scripted detectors and common
// assertions so the pipeline packages can be tested without a real
// detector, optical-flow service or encoder.
package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/banshee-data/roiqp/internal/geometry"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// GrayFrame returns a width x height frame filled by f.
func GrayFrame(width, height int, f func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: f(x, y)})
		}
	}
	return img
}

// FlatFrame returns a frame of constant intensity v.
func FlatFrame(width, height int, v uint8) *image.Gray {
	return GrayFrame(width, height, func(int, int) uint8 { return v })
}

// CheckerFrame returns a black and white checkerboard with square cells.
func CheckerFrame(width, height, cell int) *image.Gray {
	return GrayFrame(width, height, func(x, y int) uint8 {
		if (x/cell+y/cell)%2 == 0 {
			return 0
		}
		return 255
	})
}

// ShiftedFrame returns src shifted by (dx, dy) with edge pixels repeated.
func ShiftedFrame(src *image.Gray, dx, dy int) *image.Gray {
	b := src.Bounds()
	return GrayFrame(b.Dx(), b.Dy(), func(x, y int) uint8 {
		sx := min(max(x-dx, 0), b.Dx()-1)
		sy := min(max(y-dy, 0), b.Dy()-1)
		return src.GrayAt(sx, sy).Y
	})
}

// ScriptedDetector returns Responses in call order and then repeats
// Default. Errs, when set for a call index, is returned instead.
type ScriptedDetector struct {
	mu        sync.Mutex
	Responses []geometry.ROISet
	Default   geometry.ROISet
	Errs      map[int]error
	calls     int
}

// Detect implements the propagation detector interface.
func (d *ScriptedDetector) Detect(_ context.Context, _ image.Image) (geometry.ROISet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if err, ok := d.Errs[i]; ok {
		return nil, err
	}
	if i < len(d.Responses) {
		return d.Responses[i].Clone(), nil
	}
	return d.Default.Clone(), nil
}

// Calls returns how many times Detect has been invoked.
func (d *ScriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Boxes is shorthand for an ROISet of confidence-1 boxes given as
// x1,y1,x2,y2 quadruples.
func Boxes(coords ...[4]float64) geometry.ROISet {
	out := make(geometry.ROISet, len(coords))
	for i, c := range coords {
		out[i] = geometry.NewBox(c[0], c[1], c[2], c[3])
	}
	return out
}
