// Package l2series owns Layer 2 (Series) of the air-quality data model.
//
// Responsibilities: the regular output time grid, Gaussian-kernel
// resampling of irregular scalar series onto that grid, the circular
// variant for wind directions, and local trend estimation.
// Key types: TimeGrid, Kernel.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
// Everything in this package is a pure function of its inputs.
package l2series
