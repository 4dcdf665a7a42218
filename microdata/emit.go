// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package microdata implements Component E of the TopDown engine: it
// walks the leaves of a solved geographic tree and streams out one
// synthetic record per unit, each carrying its leaf's geography labels
// and the query attribute values of one expanded histogram cell
// (spec.md §4.5).
package microdata

import (
	"fmt"
	"log/slog"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/record"
)

// Emit writes one synthetic record per unit of every leaf in the tree
// rooted at root, in breadth-first (geotree.Node.Walk) order, which
// for a tree whose leaves all sit at one depth is left-to-right leaf
// order. A leaf
// that is not in geotree.SolvedInt state is skipped — its records are
// left out of the output and a warning is logged naming it — rather
// than aborting the whole stream, per spec.md §7's policy that
// per-node infeasibilities should not keep the rest of the tree from
// being emitted. Emit only returns an error for a genuine write
// failure on w.
func Emit(w *record.Writer, root *geotree.Node, pi []histogram.Tuple, queries []string) error {
	return root.Walk(func(n *geotree.Node) error {
		if !n.IsLeaf() {
			return nil
		}
		if n.State != geotree.SolvedInt {
			slog.Warn("skipping infeasible leaf", "leaf", n.ID, "state", n.State)
			return nil
		}
		return emitLeaf(w, n, pi, queries)
	})
}

// emitLeaf expands one leaf's contingency vector back into records
// and writes each, with the leaf's geography labels merged in.
func emitLeaf(w *record.Writer, n *geotree.Node, pi []histogram.Tuple, queries []string) error {
	for _, rec := range histogram.Inverse(n.V, pi, queries) {
		out := make(record.Record, len(rec)+len(n.Labels))
		for k, v := range n.Labels {
			out[k] = v
		}
		for k, v := range rec {
			out[k] = v
		}
		if err := w.WriteRecord(out); err != nil {
			return fmt.Errorf("emitting leaf %q: %v", n.ID, err)
		}
	}
	return nil
}
