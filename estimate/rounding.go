// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package estimate

import (
	"fmt"
	"sort"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/topdownerr"
)

// SolveRounding implements Stage 2 of Solver: given the Stage 1
// solution split into its integer floor xf and fractional residual r
// (so the Stage 1 value is xf+r), find y in {0,1}^n minimizing
// ||r-y||^2 such that xf+y satisfies cons. The constraints are stated
// over the full vector xf+y; SolveRounding shifts them to be stated
// over y alone before searching.
func (s KKTSolver) SolveRounding(xf, r []float64, cons []geotree.Constraint) ([]float64, error) {
	n := len(xf)
	shifted := make([]geotree.Constraint, 0, len(cons))
	for _, c := range cons {
		sc := c
		switch c.Kind {
		case geotree.SumEquals:
			row := make([]float64, n)
			for i := range row {
				row[i] = 1
			}
			sc = geotree.Constraint{Kind: geotree.LinearEquals, A: row, B: c.Total - dotSlice(row, xf)}
		case geotree.LinearEquals:
			sc = geotree.Constraint{Kind: geotree.LinearEquals, A: c.A, B: c.B - dotSlice(c.A, xf)}
		case geotree.LinearLeq:
			sc = geotree.Constraint{Kind: geotree.LinearLeq, A: c.A, B: c.B - dotSlice(c.A, xf)}
		}
		shifted = append(shifted, sc)
	}

	cutoff := s.BranchAndBoundCutoff
	if cutoff <= 0 {
		cutoff = 22
	}

	var y []float64
	var err error
	if n <= cutoff {
		y, err = branchAndBound(r, shifted)
	} else {
		y, err = greedyRound(r, shifted)
	}
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = xf[i] + y[i]
	}
	return out, nil
}

func dotSlice(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// branchAndBound finds the exact minimizer of ||r-y||^2 over y in
// {0,1}^n subject to the (already y-shifted) equality and inequality
// constraints, by depth-first search with interval bound propagation:
// at each partial assignment, a constraint row is pruned as soon as
// its remaining unassigned variables cannot possibly bring the row
// back into range.
func branchAndBound(r []float64, cons []geotree.Constraint) ([]float64, error) {
	n := len(r)
	y := make([]float64, n)
	best := make([]float64, n)
	found := false
	var bestCost float64

	var rec func(i int, partial []float64, cost float64)
	rec = func(i int, partial []float64, cost float64) {
		if found && cost >= bestCost {
			return
		}
		if i == n {
			if !feasible(cons, partial) {
				return
			}
			if !found || cost < bestCost {
				found = true
				bestCost = cost
				copy(best, partial)
			}
			return
		}
		if !boundsReachable(cons, partial, i) {
			return
		}
		for _, v := range [2]float64{0, 1} {
			partial[i] = v
			d := r[i] - v
			rec(i+1, partial, cost+d*d)
		}
		partial[i] = 0
	}
	rec(0, y, 0)

	if !found {
		return nil, fmt.Errorf("%w: no binary rounding satisfies the node's constraints", topdownerr.ErrInfeasible)
	}
	return best, nil
}

// feasible reports whether a fully assigned y satisfies cons.
func feasible(cons []geotree.Constraint, y []float64) bool {
	for _, c := range cons {
		if !c.Eval(y) {
			return false
		}
	}
	return true
}

// boundsReachable reports whether, given y[0:i] fixed and y[i:] free
// to be 0 or 1, some completion can still satisfy every equality
// constraint and every inequality constraint's upper bound.
func boundsReachable(cons []geotree.Constraint, y []float64, i int) bool {
	n := len(y)
	for _, c := range cons {
		if c.Kind == geotree.SumEquals {
			continue
		}
		var fixedSum, lo, hi float64
		for j := 0; j < n; j++ {
			a := c.A[j]
			if j < i {
				fixedSum += a * y[j]
				continue
			}
			if a > 0 {
				hi += a
			} else {
				lo += a
			}
		}
		switch c.Kind {
		case geotree.LinearEquals:
			if fixedSum+hi < c.B-tolerance || fixedSum+lo > c.B+tolerance {
				return false
			}
		case geotree.LinearLeq:
			if fixedSum+lo > c.B+tolerance {
				return false
			}
		}
	}
	return true
}

// greedyRound rounds r to its nearest binary point, then repairs any
// constraint violation by flipping the variables whose residual is
// closest to the 0.5 threshold, preferring flips that move a violated
// row toward feasibility. It is the large-n fallback for Stage 2,
// trading exactness for a search space independent of n.
func greedyRound(r []float64, cons []geotree.Constraint) ([]float64, error) {
	n := len(r)
	y := make([]float64, n)
	for i, v := range r {
		if v >= 0.5 {
			y[i] = 1
		}
	}

	type byMargin struct {
		idx    int
		margin float64
	}
	order := make([]byMargin, n)
	for i := range order {
		order[i] = byMargin{i, absFloat(r[i] - 0.5)}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].margin < order[j].margin })

	const maxRepairPasses = 4
	for pass := 0; pass < maxRepairPasses; pass++ {
		violated := firstViolated(cons, y)
		if violated == nil {
			return y, nil
		}
		flipped := false
		for _, o := range order {
			candidate := 1 - y[o.idx]
			delta := candidate - y[o.idx]
			if sign(violated.A[o.idx]*delta) == sign(violated.B-dotSlice(violated.A, y)) {
				y[o.idx] = candidate
				flipped = true
				break
			}
		}
		if !flipped {
			break
		}
	}

	if firstViolated(cons, y) != nil {
		return nil, fmt.Errorf("%w: greedy rounding could not repair all constraints", topdownerr.ErrInfeasible)
	}
	return y, nil
}

func firstViolated(cons []geotree.Constraint, y []float64) *geotree.Constraint {
	for i := range cons {
		if !cons[i].Eval(y) {
			return &cons[i]
		}
	}
	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float64) int {
	switch {
	case v > tolerance:
		return 1
	case v < -tolerance:
		return -1
	default:
		return 0
	}
}
