// Package diagnostics computes convergence diagnostics and summaries over
// completed chains of 2D samples: Gelman-Rubin R-hat, effective sample size,
// per-axis moments, and histogram divergences between chains.
//
// Every function treats the X and Y axes independently and reports one value
// per axis in a model.Vec. None of them modify their inputs.
package diagnostics
