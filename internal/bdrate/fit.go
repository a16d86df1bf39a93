package bdrate

import (
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/roiqp/internal/errors"
)

// Piecewise is a piecewise cubic. Segment i covers [Knots[i], Knots[i+1]]
// and evaluates Coeffs[i][0] + Coeffs[i][1]·t + Coeffs[i][2]·t² +
// Coeffs[i][3]·t³ with t = x - Knots[i].
type Piecewise struct {
	Knots  []float64
	Coeffs [][4]float64
}

// Fit returns the interpolant through (xs, ys). xs must be strictly
// increasing. Four points give a single exact cubic, more points a
// Fritsch–Butland monotone piecewise cubic.
func Fit(xs, ys []float64) (*Piecewise, error) {
	if len(xs) != len(ys) {
		return nil, errors.Newf("fit: %d x values and %d y values", len(xs), len(ys))
	}
	if len(xs) < MinPoints {
		return nil, errors.Newf("fit: need %d points, have %d", MinPoints, len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, errors.Newf("fit: x values not strictly increasing at %d", i)
		}
	}
	if len(xs) == MinPoints {
		return fitCubic(xs, ys)
	}
	return fitMonotone(xs, ys)
}

// fitCubic solves the Vandermonde system for the cubic through four points,
// in t = x - xs[0].
func fitCubic(xs, ys []float64) (*Piecewise, error) {
	v := mat.NewDense(4, 4, nil)
	for i, x := range xs {
		t := x - xs[0]
		v.Set(i, 0, 1)
		v.Set(i, 1, t)
		v.Set(i, 2, t*t)
		v.Set(i, 3, t*t*t)
	}
	var c mat.VecDense
	if err := c.SolveVec(v, mat.NewVecDense(4, append([]float64(nil), ys...))); err != nil {
		return nil, errors.Wrap(err, "fit: cubic solve")
	}
	return &Piecewise{
		Knots:  []float64{xs[0], xs[3]},
		Coeffs: [][4]float64{{c.AtVec(0), c.AtVec(1), c.AtVec(2), c.AtVec(3)}},
	}, nil
}

// fitMonotone converts a Fritsch–Butland interpolant into Hermite segment
// coefficients using its knot derivatives.
func fitMonotone(xs, ys []float64) (*Piecewise, error) {
	var fb interp.FritschButland
	if err := fb.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "fit: fritsch-butland")
	}
	slopes := make([]float64, len(xs))
	for i, x := range xs {
		slopes[i] = fb.PredictDerivative(x)
	}
	p := &Piecewise{Knots: append([]float64(nil), xs...), Coeffs: make([][4]float64, len(xs)-1)}
	for i := range p.Coeffs {
		h := xs[i+1] - xs[i]
		delta := (ys[i+1] - ys[i]) / h
		m0, m1 := slopes[i], slopes[i+1]
		p.Coeffs[i] = [4]float64{
			ys[i],
			m0,
			(3*delta - 2*m0 - m1) / h,
			(m0 + m1 - 2*delta) / (h * h),
		}
	}
	return p, nil
}

// segment returns the index of the segment containing x, clamped to the
// first and last segments.
func (p *Piecewise) segment(x float64) int {
	n := len(p.Coeffs)
	for i := 0; i < n-1; i++ {
		if x < p.Knots[i+1] {
			return i
		}
	}
	return n - 1
}

// Predict evaluates p at x.
func (p *Piecewise) Predict(x float64) float64 {
	i := p.segment(x)
	c := p.Coeffs[i]
	t := x - p.Knots[i]
	return c[0] + t*(c[1]+t*(c[2]+t*c[3]))
}

// Integral returns the definite integral of p over [a, b], a <= b, both
// inside the domain.
func (p *Piecewise) Integral(a, b float64) float64 {
	var total float64
	for i, c := range p.Coeffs {
		lo := max(a, p.Knots[i])
		hi := min(b, p.Knots[i+1])
		if hi <= lo {
			continue
		}
		total += antiderivative(c, hi-p.Knots[i]) - antiderivative(c, lo-p.Knots[i])
	}
	return total
}

func antiderivative(c [4]float64, t float64) float64 {
	return t * (c[0] + t*(c[1]/2+t*(c[2]/3+t*c[3]/4)))
}
