// Package pipeline runs the per-sequence frame loop and the QP sweep.
//
// For every frame the loop schedules detection, propagates ROIs, builds
// the importance map and derives one QP map per base QP. The collected
// plans are then encoded and summarised as rate-distortion rows. Sweep
// distributes independent (sequence, method, structure) jobs over a worker
// pool; each job owns its propagator.
//
// Cancellation is observed between sequences. A sequence that has started
// runs to completion so that no partial rows are emitted.
package pipeline
