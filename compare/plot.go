// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package compare

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot renders byLevel as a per-level bar chart and saves it to path,
// in the manner of cmd/phygeo/diff/speed/plot.go's use of
// gonum.org/v1/plot, but through the library's own plotter.BarChart
// rather than a custom plot.Plotter: the diagnostic is peripheral
// (spec.md §1, out-of-core), so it does not need a bespoke renderer.
func Plot(byLevel map[int]float64, path string) error {
	levels := make([]int, 0, len(byLevel))
	for d := range byLevel {
		levels = append(levels, d)
	}
	sort.Ints(levels)

	values := make(plotter.Values, len(levels))
	for i, d := range levels {
		values[i] = byLevel[d]
	}

	p := plot.New()
	p.Title.Text = "distance by geographic level"
	p.Y.Label.Text = "distance"

	bars, err := plotter.NewBarChart(values, vg.Points(28))
	if err != nil {
		return fmt.Errorf("building bar chart: %v", err)
	}
	p.Add(bars)

	names := make([]string, len(levels))
	for i, d := range levels {
		names[i] = fmt.Sprintf("level %d", d)
	}
	p.NominalX(names...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %q: %v", path, err)
	}
	return nil
}
