// Package l3field owns Layer 3 (Field) of the air-quality data model.
//
// Responsibilities: the geographic extent of a site, dense pollution
// fields interpolated from sparse sensor values (thin-plate-spline RBF
// with an inverse-distance fallback), and the plane-fit pollution
// gradient.
// Key types: Extent, Field, Point, Interpolator, Gradient.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
// Coordinates are plain degrees; projection belongs to the renderer.
package l3field
