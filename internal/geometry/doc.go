// Package geometry owns the frame-scoped value types shared by every stage
// of the ROI pipeline.
//
// Responsibilities: bounding-box arithmetic (clip, translate, expand,
// pixel coverage), dense or block motion fields and their statistics, and
// the three-level importance map.
// Key types: BoundingBox, ROISet, MotionField, ImportanceMap, Level.
//
// Dependency rule: geometry depends on nothing else in this module.
package geometry
