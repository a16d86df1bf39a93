// Package gop classifies frames of a sequence by coding structure.
//
// Responsibilities: decide which frame indices are keyframes (fresh
// detection points), which frames they reference, and the hierarchical
// temporal layer and QP offset of each frame.
// Key types: Structure, FrameInfo, Mode.
//
// Dependency rule: gop is pure and stateless and depends only on config
// and errors.
package gop
