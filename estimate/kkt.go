// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package estimate

import (
	"fmt"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/topdownerr"
	"gonum.org/v1/gonum/mat"
)

// A Solver runs Stage 1 (non-negative real estimation with edit
// constraints) and Stage 2 (controlled rounding) of spec.md §4.4. It
// is the external collaborator named by spec.md §6 ("Solver
// interface").
type Solver interface {
	// SolveNNLS solves Stage 1: minimize ||x-target||^2 subject to
	// x >= 0 and the given constraints.
	SolveNNLS(target []float64, cons []geotree.Constraint) ([]float64, error)

	// SolveRounding solves Stage 2: minimize ||r-y||^2 over
	// y in {0,1}^n subject to the constraints holding on xf+y.
	SolveRounding(xf, r []float64, cons []geotree.Constraint) ([]float64, error)
}

// KKTSolver implements Solver with an active-set method over dense
// linear algebra from gonum.org/v1/gonum/mat: Stage 1 is solved by
// repeatedly solving the Karush-Kuhn-Tucker system of the
// equality-constrained least-squares projection, fixing to zero any
// variable that goes negative, until a feasible non-negative point is
// found or no further progress is possible (a Stage 1 infeasibility).
// Inequality constraints are handled by an outer loop that activates
// any violated inequality as an equality and re-solves.
//
// No library in this project's dependency stack implements a
// constrained QP or binary-program solver (see DESIGN.md); KKTSolver
// is the hand-rolled numerical core this specification asks for, built
// on the teacher's own gonum/mat dependency for the linear algebra.
type KKTSolver struct {
	// MaxActiveSetIters bounds the number of active-set iterations
	// for Stage 1 before giving up and reporting infeasibility.
	// Zero means a sensible default (4x the vector length, plus 8).
	MaxActiveSetIters int

	// BranchAndBoundCutoff is the largest decision-vector length
	// for which Stage 2 is solved by exact branch and bound; above
	// it, Stage 2 falls back to a greedy rounding with local-search
	// repair (see rounding.go).
	BranchAndBoundCutoff int
}

const tolerance = 1e-7

// SolveNNLS implements Solver.
func (s KKTSolver) SolveNNLS(target []float64, cons []geotree.Constraint) ([]float64, error) {
	n := len(target)
	maxIters := s.MaxActiveSetIters
	if maxIters <= 0 {
		maxIters = 4*n + 8
	}

	aEq, bEq, ineq := Model{Target: target, Constraints: cons}.equalities()

	active := make([]bool, 0) // parallel to ineq: true if activated as equality
	active = append(active, make([]bool, len(ineq))...)

	for outer := 0; outer <= len(ineq); outer++ {
		a := append([][]float64(nil), aEq...)
		b := append([]float64(nil), bEq...)
		for i, c := range ineq {
			if active[i] {
				a = append(a, c.A)
				b = append(b, c.B)
			}
		}

		x, err := nnlsActiveSet(target, a, b, maxIters)
		if err != nil {
			return nil, err
		}

		violated := -1
		for i, c := range ineq {
			if active[i] {
				continue
			}
			if !c.Eval(x) {
				violated = i
				break
			}
		}
		if violated < 0 {
			return x, nil
		}
		active[violated] = true
	}

	return nil, fmt.Errorf("%w: could not satisfy all inequality constraints", topdownerr.ErrInfeasible)
}

// nnlsActiveSet solves min ||x-target||^2 s.t. Ax=b, x>=0 by the
// bound-constrained active-set method: solve the equality-constrained
// least squares problem over the currently free variables (fixed
// variables pinned at zero), then fix to zero the free variable whose
// solution value is most negative, and repeat.
func nnlsActiveSet(target []float64, a [][]float64, b []float64, maxIters int) ([]float64, error) {
	n := len(target)
	fixed := make([]bool, n)

	for iter := 0; iter < maxIters; iter++ {
		free := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if !fixed[i] {
				free = append(free, i)
			}
		}

		xFree, err := solveEqualityLS(target, a, b, free, n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", topdownerr.ErrInfeasible, err)
		}

		x := make([]float64, n)
		for i, idx := range free {
			x[idx] = xFree[i]
		}

		negIdx := -1
		mostNeg := -tolerance
		for i, idx := range free {
			if xFree[i] < mostNeg {
				mostNeg = xFree[i]
				negIdx = idx
			}
			_ = i
		}
		if negIdx < 0 {
			return clampTiny(x), nil
		}
		fixed[negIdx] = true
	}

	return nil, fmt.Errorf("%w: active-set method did not converge in %d iterations", topdownerr.ErrInfeasible, maxIters)
}

// solveEqualityLS solves, for the variables indexed by free (all
// others pinned at 0), the KKT system of
//
//	minimize   sum_i (x_i - target_i)^2
//	subject to A_free x_free = b
//
// by forming and solving the (|free|+k) square KKT linear system with
// gonum/mat.
func solveEqualityLS(target []float64, a [][]float64, b []float64, free []int, n int) ([]float64, error) {
	nf := len(free)
	k := len(a)

	if k == 0 {
		x := make([]float64, nf)
		for i, idx := range free {
			x[i] = target[idx]
		}
		return x, nil
	}

	size := nf + k
	kkt := mat.NewDense(size, size, nil)
	rhs := mat.NewVecDense(size, nil)

	for i := 0; i < nf; i++ {
		kkt.Set(i, i, 2)
		rhs.SetVec(i, 2*target[free[i]])
	}
	for r := 0; r < k; r++ {
		row := a[r]
		for i, idx := range free {
			kkt.Set(i, nf+r, row[idx])
			kkt.Set(nf+r, i, row[idx])
		}
		rhs.SetVec(nf+r, b[r])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		return nil, err
	}

	x := make([]float64, nf)
	for i := range x {
		x[i] = sol.AtVec(i)
	}
	return x, nil
}

// clampTiny zeroes out numerically-negligible negative residue left
// by floating point arithmetic, per spec.md §7's tolerance policy
// ("Numerical noise from the solver... is tolerated: always clamp to
// >= 0... at phase boundaries").
func clampTiny(x []float64) []float64 {
	for i, v := range x {
		if v < 0 && v > -tolerance {
			x[i] = 0
		}
	}
	return x
}
