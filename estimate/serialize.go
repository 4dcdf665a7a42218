// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package estimate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/js-arias/topdown/geotree"
)

// SerializeModel writes a diagnostic TSV dump of one node's
// optimization model: one row per decision variable, one row per
// constraint, enough to reproduce (or debug) the call made to a
// Solver outside of a full topdown run.
func SerializeModel(w io.Writer, nodeID string, target []float64, cons []geotree.Constraint) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	defer tw.Flush()

	if err := tw.Write([]string{"node", "kind", "index", "value"}); err != nil {
		return fmt.Errorf("serializing model for %q: %v", nodeID, err)
	}
	for i, v := range target {
		if err := tw.Write([]string{nodeID, "target", strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("serializing model for %q: %v", nodeID, err)
		}
	}
	for i, c := range cons {
		rhs := c.B
		if c.Kind == geotree.SumEquals {
			rhs = c.Total
		}
		if err := tw.Write([]string{nodeID, "constraint:" + c.Kind.String(), strconv.Itoa(i), strconv.FormatFloat(rhs, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("serializing model for %q: %v", nodeID, err)
		}
	}
	tw.Flush()
	return tw.Error()
}
