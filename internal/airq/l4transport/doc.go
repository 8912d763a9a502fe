// Package l4transport owns Layer 4 (Transport) of the air-quality data
// model.
//
// Responsibilities: wind vectors in both the meteorological "from" and the
// downwind "toward" conventions, the wind/gradient alignment classifier,
// and relative upwind scores for sensors.
// Key types: Wind, Indicator, Classifier.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5.
//
// The classifier is a directional heuristic for visualisation. It does not
// model mass transport.
package l4transport
