// Package propagation carries the ROI set of one sequence from frame to
// frame.
//
// Responsibilities: the detect-versus-propagate decision, motion-based box
// translation with clipping and small-box removal, the re-detection
// trigger, detector failure recovery, and per-sequence detection statistics.
// Key types: Propagator, State, Trigger, Input, Result.
//
// Dependency rule: propagation depends on geometry, config and errors. It
// consumes a Detector interface and never imports a concrete adapter.
//
// A Propagator owns exactly one State and is not safe for concurrent use;
// give every worker its own Propagator.
package propagation
