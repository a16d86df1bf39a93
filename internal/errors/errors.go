// Package errors provides error handling for roiqp.
//
// It re-exports github.com/cockroachdb/errors so that every package gets
// stack traces, wrapping and hints from one import, and it defines the
// sentinel errors of the pipeline's error taxonomy.
//
// Data-quality conditions of the rate-distortion evaluator are not errors;
// they are reported through bdrate.Result. Normalization fallbacks are
// reported through qp.Normalization.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors of the per-frame and per-sequence taxonomy.
// Wrap these with Wrap/Wrapf to add context while keeping Is() working.
var (
	// ErrDetectionUnavailable indicates the detector failed or timed out.
	ErrDetectionUnavailable = New("detection unavailable")

	// ErrMotionUnavailable indicates no motion field could be computed for
	// a frame pair.
	ErrMotionUnavailable = New("motion unavailable")

	// ErrInfeasibleNormalization indicates the bitrate-neutral background
	// offset has no solution for the frame's level fractions.
	ErrInfeasibleNormalization = New("infeasible normalization")

	// ErrInvalidGeometry indicates a bounding box with non-positive width
	// or height.
	ErrInvalidGeometry = New("invalid geometry")

	// ErrInvalidPeriod indicates a coding structure with period <= 0.
	ErrInvalidPeriod = New("invalid period")

	// ErrRetriesExhausted indicates a sequence was aborted after repeated
	// detection failures.
	ErrRetriesExhausted = New("detection retries exhausted")
)

// IsDetectionUnavailable reports whether err is or wraps ErrDetectionUnavailable.
func IsDetectionUnavailable(err error) bool {
	return err != nil && Is(err, ErrDetectionUnavailable)
}

// IsMotionUnavailable reports whether err is or wraps ErrMotionUnavailable.
func IsMotionUnavailable(err error) bool {
	return err != nil && Is(err, ErrMotionUnavailable)
}

// WrapDetection marks err as a detection failure, keeping its message.
func WrapDetection(err error, context string) error {
	if err == nil {
		return nil
	}
	return Wrap(Mark(err, ErrDetectionUnavailable), context)
}
