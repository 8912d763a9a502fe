// Package pipeline runs the per-day analysis: it selects a day's
// observations, drops and screens bad rows, and hands the rest to the
// frame assembler.
//
// This package is the composition root for the analysis layers
// (l1observations through l5frames) and the monitoring counters. None of
// those packages import pipeline/.
package pipeline
