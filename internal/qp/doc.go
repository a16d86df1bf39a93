// Package qp converts an importance map into a per-block QP map.
//
// Responsibilities: per-level texture and motion complexity, adaptive
// per-level QP offsets (alphas), the bitrate-neutral background solve with
// its audited fallback, block-grid QP assignment, QP statistics and the
// theoretical rate ratio of a map.
// Key types: Controller, Config, Alphas, Normalization, Map, FrameQP.
//
// Rate model: an offset of ΔQP scales a region's rate by 2^(ΔQP/6), with
// ΔQP = -alpha for core and context and +alpha for background. The
// neutral background offset makes the area-weighted sum of these factors
// equal one.
//
// Dependency rule: qp depends on geometry, hierarchy, config and errors.
package qp
