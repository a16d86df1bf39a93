// Package hierarchy turns a flat ROI set into a three-level importance map.
//
// Responsibilities: adaptive context-ring geometry, the two-pass
// context/core labelling that keeps CORE precedence independent of box
// order, reduction of the pixel map to the coding-block grid, level
// coverage and temporal merging of maps.
// Key types: Mapper, Config, BlockGrid, Coverage.
//
// Dependency rule: hierarchy depends on geometry and config only.
package hierarchy
