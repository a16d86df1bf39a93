// Package bdrate computes Bjøntegaard-delta metrics between two
// rate-distortion curves.
//
// Curves are fitted with a cubic through exactly four points or a
// Fritsch–Butland monotone piecewise cubic for more, and the difference of
// the fits is integrated in closed form over the common range. Degenerate
// inputs are reported as invalid results carrying a reason, never as errors
// or zero values.
package bdrate
