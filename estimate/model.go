// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package estimate implements Component D of the TopDown engine: the
// two-stage per-node constrained optimization that restores
// non-negativity, integrality, edit-constraint satisfaction and
// parent=Σchildren consistency (spec.md §4.4). This is the core of
// the core: invariants I1-I4 are established here, nowhere else.
package estimate

import "github.com/js-arias/topdown/geotree"

// A Model is the solver-facing representation of one node's (or one
// joint parent-children block's) optimization problem: a target
// vector to project, and the linear equality/inequality constraints
// it must satisfy. It mirrors the external "solver interface" named
// by spec.md §6: a decision vector of given length, a quadratic
// objective (squared L2 distance to Target), and a collection of
// linear constraints.
type Model struct {
	// NodeID identifies the node this model was built for (for a
	// joint block, the parent's ID), used only for diagnostics.
	NodeID string

	// Target is v̂: the vector Stage 1 projects onto the feasible
	// region, or x_f (the floor of the Stage 1 solution) for Stage
	// 2's residual.
	Target []float64

	// Constraints are already expressed over the full Target
	// length: for a joint parent-children block, they have already
	// been lifted to the block's coordinate space (see
	// geotree.Constraint.Lift), with slice offsets captured by
	// value, never by loop-variable reference.
	Constraints []geotree.Constraint
}

// equalities splits m.Constraints into the stacked equality system
// (A, b) and returns the inequality constraints separately.
func (m Model) equalities() (a [][]float64, b []float64, ineq []geotree.Constraint) {
	n := len(m.Target)
	for _, c := range m.Constraints {
		switch c.Kind {
		case geotree.SumEquals:
			row := make([]float64, n)
			for i := range row {
				row[i] = 1
			}
			a = append(a, row)
			b = append(b, c.Total)
		case geotree.LinearEquals:
			a = append(a, c.A)
			b = append(b, c.B)
		case geotree.LinearLeq:
			ineq = append(ineq, c)
		}
	}
	return a, b, ineq
}
