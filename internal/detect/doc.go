// Package detect provides object detector adapters producing ROI sets.
//
// The HTTP adapter posts frames to an inference service. Static and
// filtering detectors cover offline runs and post-processing. All of them
// satisfy propagation.Detector.
package detect
