// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package geotree

import (
	"fmt"

	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/record"
	"github.com/js-arias/topdown/topdownerr"
)

// GeoSpec describes the geographic hierarchy and the edit-constraint
// templates used to build a tree (spec.md §4.2).
type GeoSpec struct {
	// Columns is G: the ordered geographic attributes, coarsest
	// first.
	Columns []string

	// Constraints maps a geographic attribute name to the ordered
	// list of edit-constraint templates applied to every node at
	// that level.
	Constraints map[string][]Template

	// Root is the ordered list of edit-constraint templates
	// applied to the root node.
	Root []Template
}

// Build constructs the geographic tree from records, per spec.md
// §4.2: a root node holding the histogram of the whole input, with
// one child per distinct value of each geographic attribute, coarsest
// to finest, recursing until GeoSpec.Columns is exhausted.
func Build(records []record.Record, geo GeoSpec, pi []histogram.Tuple, idx map[string]int, queries []string) (*Node, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to build a tree from", topdownerr.ErrData)
	}
	if err := record.SelectColumns(headerOf(records), geo.Columns); err != nil {
		return nil, err
	}
	if err := record.SelectColumns(headerOf(records), queries); err != nil {
		return nil, err
	}

	root := &Node{
		Labels: map[string]string{},
		V:      histogram.Histogram(records, pi, idx, queries),
		State:  Built,
	}
	root.Constraints = bindAll(geo.Root, float64(len(records)))

	if err := Extend(root, geo.Columns, geo.Constraints, records, pi, idx, queries); err != nil {
		return nil, err
	}
	return root, nil
}

// Extend grows parent with the recursive §4.2 child construction for
// the remaining geographic levels, using subset as the record pool
// for parent's cell. It is exported so package resume can extend a
// rebuilt checkpoint tree with the geographic levels below the
// checkpoint depth (spec.md §5, "Resumable runs").
func Extend(parent *Node, levels []string, cons map[string][]Template, subset []record.Record, pi []histogram.Tuple, idx map[string]int, queries []string) error {
	return buildChildren(parent, levels, cons, subset, pi, idx, queries)
}

// headerOf recovers a header slice from a non-empty record slice;
// every record is expected to share the same set of keys, as
// guaranteed by record.ReadAll.
func headerOf(records []record.Record) []string {
	header := make([]string, 0, len(records[0]))
	for k := range records[0] {
		header = append(header, k)
	}
	return header
}

func buildChildren(parent *Node, levels []string, cons map[string][]Template, subset []record.Record, pi []histogram.Tuple, idx map[string]int, queries []string) error {
	if len(levels) == 0 {
		return nil
	}

	col := levels[0]
	for _, value := range record.Distinct(subset, col) {
		filtered := record.Filter(subset, col, value)

		labels := make(map[string]string, len(parent.Labels)+1)
		for k, v := range parent.Labels {
			labels[k] = v
		}
		labels[col] = value

		child := &Node{
			ID:          value,
			Labels:      labels,
			Depth:       parent.Depth + 1,
			V:           histogram.Histogram(filtered, pi, idx, queries),
			State:       Built,
			Constraints: bindAll(cons[col], float64(len(filtered))),
		}

		if err := buildChildren(child, levels[1:], cons, filtered, pi, idx, queries); err != nil {
			return err
		}
		parent.Children = append(parent.Children, child)
	}
	return nil
}

func bindAll(templates []Template, total float64) []Constraint {
	if len(templates) == 0 {
		return nil
	}
	out := make([]Constraint, len(templates))
	for i, t := range templates {
		out[i] = t.Bind(total)
	}
	return out
}
