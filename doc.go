// Package taguchi implements the core of a generic Taguchi-method
// parameter-optimization engine: orthogonal-array design, a subprocess
// trial driver, a checkpointing result store, and (in the stats
// subpackage) the statistical pipeline that turns recorded trial readings
// into per-metric analysis reports.
//
// The package treats the target program as an opaque black box: callers
// describe control and noise factors, the engine designs an experiment
// over a standard orthogonal array, drives the target once per row (with
// repetitions cycling noise levels), and hands the recorded readings to
// the stats package for analysis.
package taguchi
