// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package compare implements the distance_metric diagnostics of
// spec.md §8: out-of-core, peripheral to the core build→measure→
// estimate→emit pipeline, but a real collaborator for judging how far
// a synthetic release moved from the raw data (or from its own
// pre-noise snapshot).
package compare

import (
	"fmt"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/topdownerr"
	"gonum.org/v1/gonum/floats"
)

// Manhattan is the L1 distance between a and b, grounded on
// original_source/utility.py::manhattan_distance. It sums absolute
// differences in a plain loop rather than calling
// floats.Distance(a, b, 1).
func Manhattan(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += absFloat(a[i] - b[i])
	}
	return sum
}

// Euclidean is the L2 distance between a and b, grounded on
// original_source/utility.py::euclidean_distance. This is exactly
// gonum/floats.Distance with an L2 norm.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// TVD is the total variation distance between a and b, normalized to
// probability vectors first, grounded on
// original_source/utility.py::tvd. The normalize-then-halve-the-L1
// shape is spec-specific, not a gonum primitive, so it is hand-rolled
// in terms of floats.Sum and Manhattan.
func TVD(a, b []float64) float64 {
	sumA := floats.Sum(a)
	sumB := floats.Sum(b)
	if sumA == 0 || sumB == 0 {
		return 0
	}
	p := make([]float64, len(a))
	q := make([]float64, len(b))
	for i := range a {
		p[i] = a[i] / sumA
		q[i] = b[i] / sumB
	}
	return 0.5 * Manhattan(p, q)
}

// Cosine is the cosine similarity between a and b, grounded on
// original_source/utility.py::cosine_similarity. This is exactly
// floats.Dot over the product of floats.Norm(a,2) and floats.Norm(b,2).
func Cosine(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Metric looks up a distance function by its config name.
func Metric(name string) (func(a, b []float64) float64, error) {
	switch name {
	case "manhattan":
		return Manhattan, nil
	case "euclidean":
		return Euclidean, nil
	case "tvd":
		return TVD, nil
	case "cosine":
		return Cosine, nil
	default:
		return nil, fmt.Errorf("%w: unknown distance metric %q", topdownerr.ErrConfig, name)
	}
}

// ByLevel computes the mean metric value per breadth-first level
// between two trees of matching shape, grounded on
// original_source/comparition.py::compare_trees_by_tvd.
func ByLevel(a, b *geotree.Node, metric string) (map[int]float64, error) {
	fn, err := Metric(metric)
	if err != nil {
		return nil, err
	}

	la := a.IterateByLevels()
	lb := b.IterateByLevels()
	if len(la) != len(lb) {
		return nil, fmt.Errorf("%w: trees have %d and %d levels", topdownerr.ErrData, len(la), len(lb))
	}

	out := make(map[int]float64, len(la))
	for d := range la {
		if len(la[d]) != len(lb[d]) {
			return nil, fmt.Errorf("%w: level %d has %d and %d nodes", topdownerr.ErrData, d, len(la[d]), len(lb[d]))
		}
		var sum float64
		for i := range la[d] {
			sum += fn(la[d][i].V, lb[d][i].V)
		}
		out[d] = sum / float64(len(la[d]))
	}
	return out, nil
}

// ByLevelAgainstRef compares every node of a against its own VRef
// snapshot (set by geotree.Node.SnapshotRef), per level. This is the
// v_ref comparative-vector feature of
// original_source/geographic_tree.py, used to diagnose noise impact
// without a second full run.
func ByLevelAgainstRef(root *geotree.Node, metric string) (map[int]float64, error) {
	fn, err := Metric(metric)
	if err != nil {
		return nil, err
	}

	out := make(map[int]float64)
	for d, nodes := range root.IterateByLevels() {
		var sum float64
		var n int
		for _, node := range nodes {
			if node.VRef == nil {
				continue
			}
			sum += fn(node.V, node.VRef)
			n++
		}
		if n > 0 {
			out[d] = sum / float64(n)
		}
	}
	return out, nil
}
