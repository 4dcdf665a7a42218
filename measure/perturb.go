// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package measure implements Component C of the TopDown engine: it
// adds discrete-noise-mechanism samples to every node's contingency
// vector, with per-level privacy parameters (spec.md §4.3).
package measure

import (
	"fmt"
	"log/slog"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/topdownerr"
)

// Mechanism selects the noise distribution used by Perturb. It
// replaces function-pointer dispatch with an explicit enum, branching
// at the innermost sampling loop (spec.md Design Notes).
type Mechanism int

const (
	// DiscreteGaussian perturbs each cell with an independent
	// discrete Gaussian sample parameterized by rho.
	DiscreteGaussian Mechanism = iota
	// DiscreteLaplace perturbs each cell with an independent
	// discrete Laplace sample, the sampler invoked with scale
	// 1/epsilon.
	DiscreteLaplace
)

// ParseMechanism converts a configuration string to a Mechanism.
func ParseMechanism(s string) (Mechanism, error) {
	switch s {
	case "discrete_gaussian":
		return DiscreteGaussian, nil
	case "discrete_laplace":
		return DiscreteLaplace, nil
	default:
		return 0, fmt.Errorf("%w: unknown mechanism %q", topdownerr.ErrConfig, s)
	}
}

func (m Mechanism) String() string {
	switch m {
	case DiscreteGaussian:
		return "discrete_gaussian"
	case DiscreteLaplace:
		return "discrete_laplace"
	default:
		return "unknown"
	}
}

// Perturb adds noise to every node of the tree rooted at root,
// breadth first, per spec.md §4.3. rho must have one entry per depth
// present in the tree (index d governs depth d); Perturb only visits
// the depths for which rho has an entry. Package resume passes a
// slice indexed the same way, with +Inf for the depths it must not
// perturb.
//
// After Perturb, a node's V may contain negative or non-integer
// values; only the length invariant (P1) still holds. Non-negativity
// and integrality (P2-P3) are restored by package estimate.
func Perturb(root *geotree.Node, mech Mechanism, rho []float64, s Sampler) error {
	levels := root.IterateByLevels()
	for d, nodes := range levels {
		if d >= len(rho) {
			break
		}
		for _, n := range nodes {
			perturbOne(n, mech, rho[d], s)
			n.State = geotree.Noisy
		}
		slog.Debug("measurement applied", "depth", d, "nodes", len(nodes), "mechanism", mech, "rho", rho[d])
	}
	return nil
}

func perturbOne(n *geotree.Node, mech Mechanism, rho float64, s Sampler) {
	for i := range n.V {
		switch mech {
		case DiscreteGaussian:
			n.V[i] += float64(s.SampleGaussian(rho))
		case DiscreteLaplace:
			// spec.md Design Note (b): the sampler is invoked with
			// scale 1/epsilon, where rho here is epsilon for the
			// Laplace mechanism.
			n.V[i] += float64(s.SampleLaplace(1 / rho))
		}
	}
}
