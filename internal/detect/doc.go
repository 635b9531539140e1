// Package detect holds the core boundary-detection vocabulary shared by
// the window determiner, the per-window detectors, the clusterer, and the
// precision sequencer: detector kinds, raw detections, and search windows.
package detect
