// Package l5frames owns Layer 5 (Frames) of the air-quality data model.
//
// Responsibilities: turning one day of clean observations into an ordered
// list of immutable AnalysisFrames. Per-sensor smoothing is done once per
// day into SensorTrack value objects; each frame then reads tracks by grid
// index and runs the gradient, classifier and field layers.
// Key types: Assembler, Config, WindSource, SensorTrack, AnalysisFrame.
//
// Dependency rule: L5 may depend on L1-L4. It performs no I/O; callers
// hand in observations and take frames by value.
package l5frames
