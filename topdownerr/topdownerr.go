// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package topdownerr defines the error kinds
// used across the topdown module,
// following the error-handling design of the TopDown engine:
// configuration and data errors are fatal,
// numerical infeasibilities and resume mismatches
// are reported but, in the infeasibility case,
// do not necessarily abort the run.
package topdownerr

import "errors"

// Sentinel error kinds. Use errors.Is against these
// to classify an error returned by the topdown packages.
var (
	// ErrConfig marks a configuration error:
	// missing or contradictory options,
	// a privacy-parameter vector of the wrong length,
	// or an unknown mechanism or distance metric.
	// Fatal at initialization.
	ErrConfig = errors.New("configuration error")

	// ErrData marks a data error:
	// a missing column, an unreadable row,
	// or an empty input.
	// Fatal at measurement start.
	ErrData = errors.New("data error")

	// ErrInfeasible marks a numerical infeasibility
	// at a single node of the estimation stage.
	// The run continues; the affected subtree is skipped.
	ErrInfeasible = errors.New("numerical infeasibility")

	// ErrResume marks a resume mismatch:
	// the checkpoint's permutation or depth
	// is incompatible with the current configuration.
	// Fatal; no mutation is performed.
	ErrResume = errors.New("resume mismatch")
)
