// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package estimate

import (
	"log/slog"
	"math"
	"sync"

	"github.com/js-arias/topdown/geotree"
)

// EstimateRoot solves Stage 1 and Stage 2 for the root node alone,
// against its own constraints (the root has no parent to be
// consistent with). On success root.V holds non-negative integers and
// root.State is geotree.SolvedInt.
func EstimateRoot(root *geotree.Node, solver Solver) error {
	return solveNode(root, root.Constraints, root.V, solver)
}

// EstimateTree runs Component D over the whole tree rooted at root,
// level by level: after the root is solved, each node's children are
// solved jointly so that the children's vectors sum, coordinate by
// coordinate, to the already-solved parent vector (spec.md invariant
// I2, established here by a single joint optimization over the
// concatenated children block rather than independent per-child
// solves). EstimateTree assumes root is already SolvedInt (call
// EstimateRoot first, or pass a tree resumed from a checkpoint at
// geotree.SolvedInt).
//
// When the joint solve of a node's children fails, those children are
// marked geotree.Infeasible (the parent keeps its SolvedInt state), and
// their subtrees are skipped: their descendants are marked Infeasible in
// turn without ever being solved, but every other branch of the tree
// keeps going, per spec.md §4.4's failure semantics ("the subtree of
// that node is skipped") and §7's policy of maximizing what gets
// emitted. EstimateTree itself therefore always returns nil; callers
// learn how much of the tree failed from geotree.Node.CountByState.
func EstimateTree(root *geotree.Node, solver Solver) error {
	levels := root.IterateByLevels()
	for d, nodes := range levels {
		for _, n := range nodes {
			if n.IsLeaf() {
				continue
			}
			if n.State != geotree.SolvedInt {
				markChildrenInfeasible(n)
				continue
			}
			if err := solveChildren(n, solver); err != nil {
				slog.Warn("node infeasible, skipping subtree", "depth", d, "node", n.ID, "error", err)
			}
		}
	}
	return nil
}

// EstimateTreeConcurrent is EstimateTree with each level's
// joint-children solves run across a bounded worker pool, per spec.md
// §5's concurrency model: siblings at a level are independent of each
// other, but a level cannot start until its parent level has
// finished. Like EstimateTree, a failing node only skips its own
// subtree; every other branch, and the rest of the tree, is still
// estimated.
func EstimateTreeConcurrent(root *geotree.Node, solver Solver, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	levels := root.IterateByLevels()
	for d, nodes := range levels {
		parents := make([]*geotree.Node, 0, len(nodes))
		for _, n := range nodes {
			if n.IsLeaf() {
				continue
			}
			if n.State != geotree.SolvedInt {
				markChildrenInfeasible(n)
				continue
			}
			parents = append(parents, n)
		}
		if len(parents) == 0 {
			continue
		}

		sem := make(chan struct{}, workers)
		errs := make([]error, len(parents))
		var wg sync.WaitGroup
		for i, n := range parents {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, n *geotree.Node) {
				defer wg.Done()
				defer func() { <-sem }()
				errs[i] = solveChildren(n, solver)
			}(i, n)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				slog.Warn("node infeasible, skipping subtree", "depth", d, "node", parents[i].ID, "error", err)
			}
		}
	}
	return nil
}

// markChildrenInfeasible marks every child of n as Infeasible without
// attempting to solve them, because n itself could not be estimated
// (or was already marked Infeasible by an ancestor): there is no
// consistent parent vector left to make the children sum to, so the
// whole subtree is skipped rather than solved against stale data.
func markChildrenInfeasible(n *geotree.Node) {
	for _, c := range n.Children {
		c.State = geotree.Infeasible
	}
}

// solveNode runs Stage 1 and Stage 2 for a single target vector
// against a set of constraints already expressed in the target's own
// coordinate space, writing the result back into that node's V.
func solveNode(n *geotree.Node, cons []geotree.Constraint, target []float64, solver Solver) error {
	real, err := solver.SolveNNLS(target, cons)
	if err != nil {
		n.State = geotree.Infeasible
		return err
	}
	n.State = geotree.SolvedReal

	xf := make([]float64, len(real))
	r := make([]float64, len(real))
	for i, v := range real {
		f := math.Floor(v)
		xf[i] = f
		r[i] = v - f
	}

	rounded, err := solver.SolveRounding(xf, r, cons)
	if err != nil {
		n.State = geotree.Infeasible
		return err
	}

	n.V = rounded
	n.State = geotree.SolvedInt
	return nil
}

// solveChildren jointly solves every child of n: the decision vector
// is the concatenation of the children's (noisy) vectors, each
// child's own constraints are lifted into the joint block's
// coordinate space, and one further equality constraint per histogram
// cell ties the children's sum back to n's already-solved V.
func solveChildren(n *geotree.Node, solver Solver) error {
	k := len(n.Children)
	if k == 0 {
		return nil
	}
	cellWidth := len(n.V)
	total := k * cellWidth

	joint := make([]float64, 0, total)
	cons := make([]geotree.Constraint, 0)
	for ci, child := range n.Children {
		joint = append(joint, child.V...)
		offset := ci * cellWidth
		for _, c := range child.Constraints {
			// offset and cellWidth are captured here by value, as
			// arguments to Lift, never by reference into the loop
			// variable ci (see geotree.Constraint.Lift).
			cons = append(cons, c.Lift(offset, cellWidth, total))
		}
	}
	for cell := 0; cell < cellWidth; cell++ {
		row := make([]float64, total)
		for ci := 0; ci < k; ci++ {
			row[ci*cellWidth+cell] = 1
		}
		cons = append(cons, geotree.Constraint{Kind: geotree.LinearEquals, A: row, B: n.V[cell]})
	}

	model := Model{NodeID: n.ID, Target: joint, Constraints: cons}
	real, err := solver.SolveNNLS(model.Target, model.Constraints)
	if err != nil {
		for _, child := range n.Children {
			child.State = geotree.Infeasible
		}
		return err
	}
	xf := make([]float64, total)
	r := make([]float64, total)
	for i, v := range real {
		f := math.Floor(v)
		xf[i] = f
		r[i] = v - f
	}
	rounded, err := solver.SolveRounding(xf, r, cons)
	if err != nil {
		for _, child := range n.Children {
			child.State = geotree.Infeasible
		}
		return err
	}

	for ci, child := range n.Children {
		offset := ci * cellWidth
		child.V = append([]float64(nil), rounded[offset:offset+cellWidth]...)
		child.State = geotree.SolvedInt
	}
	slog.Debug("estimation solved", "node", n.ID, "children", k, "cell_width", cellWidth)
	return nil
}
