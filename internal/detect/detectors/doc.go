// Package detectors implements the per-window boundary detectors. Each
// detector samples one signal inside a search window and emits scored raw
// detections; a detector failure is logged and degraded to an empty
// result, never propagated as a run failure. Media access and external
// services are injected through small interfaces so every detector can be
// tested with deterministic fakes.
package detectors
