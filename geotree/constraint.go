// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package geotree

import "fmt"

// A Constraint is a linear predicate over a node's contingency vector,
// bound to the node's total record count captured at tree-build time.
//
// Constraints are represented as a tagged variant, never as an opaque
// closure: the solver must inspect a constraint's shape to translate it
// into its own native constraint API, and binding t by value at build
// time avoids the late-binding bug of a closure that captures a loop
// variable by reference.
type Constraint struct {
	Kind Kind

	// A is the linear coefficient vector, used by LinearEquals and
	// LinearLeq. Nil for SumEquals, which is the sum of all cells.
	A []float64

	// B is the right-hand-side constant for LinearEquals and LinearLeq.
	B float64

	// Total is the node's record count captured at build time,
	// used by SumEquals.
	Total float64
}

// Kind identifies the shape of a Constraint.
type Kind int

const (
	// SumEquals requires sum(v) == Total.
	SumEquals Kind = iota
	// LinearEquals requires dot(A, v) == B.
	LinearEquals
	// LinearLeq requires dot(A, v) <= B.
	LinearLeq
)

func (k Kind) String() string {
	switch k {
	case SumEquals:
		return "sum_equals"
	case LinearEquals:
		return "linear_equals"
	case LinearLeq:
		return "linear_leq"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Eval reports whether the constraint holds on v, within a small
// numerical tolerance (constraints are checked after rounding, where
// exact equality on floats is not a realistic expectation).
func (c Constraint) Eval(v []float64) bool {
	const eps = 1e-6
	switch c.Kind {
	case SumEquals:
		var sum float64
		for _, x := range v {
			sum += x
		}
		return abs(sum-c.Total) <= eps
	case LinearEquals:
		return abs(dot(c.A, v)-c.B) <= eps
	case LinearLeq:
		return dot(c.A, v) <= c.B+eps
	default:
		return false
	}
}

func dot(a, v []float64) float64 {
	var sum float64
	for i, x := range a {
		sum += x * v[i]
	}
	return sum
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// A Template is an unbound Constraint: the same shape, without a
// captured total. Bind copies the node's total by value into a new
// Constraint, the one point where the late-binding hazard must be
// avoided.
type Template struct {
	Kind Kind
	A    []float64
	B    float64
}

// Bind captures total into a concrete, node-specific Constraint.
func (t Template) Bind(total float64) Constraint {
	return Constraint{
		Kind:  t.Kind,
		A:     t.A,
		B:     t.B,
		Total: total,
	}
}

// Lift translates a child's constraint into one that applies to a
// slice [offset, offset+w) of a larger, concatenated decision vector,
// as used by the per-parent joint optimization program (spec.md
// §4.4, "Joint constraint block indexing"). offset and w are captured
// by value in the returned Constraint's A vector, never by reference
// to a loop variable.
func (c Constraint) Lift(offset, w, total int) Constraint {
	switch c.Kind {
	case SumEquals:
		a := make([]float64, total)
		for i := 0; i < w; i++ {
			a[offset+i] = 1
		}
		return Constraint{Kind: LinearEquals, A: a, B: c.Total}
	case LinearEquals, LinearLeq:
		a := make([]float64, total)
		copy(a[offset:offset+w], c.A)
		return Constraint{Kind: c.Kind, A: a, B: c.B}
	default:
		panic("unknown constraint kind")
	}
}
