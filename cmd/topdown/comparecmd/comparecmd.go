// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package comparecmd implements the topdown compare command: the
// distance_metric diagnostics of spec.md §8, explicitly out-of-core
// per §1 but a real collaborator for judging how far a release moved.
package comparecmd

import (
	"fmt"

	"github.com/js-arias/command"
	"github.com/js-arias/topdown/compare"
	"github.com/js-arias/topdown/config"
	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/record"
)

var Command = &command.Command{
	Usage: "compare [--chart <path>] <config-file> <file-a> <file-b>",
	Short: "compare two microdata files level by level",
	Long: `
Command compare reads two microdata files sharing the geography and
query columns of the given configuration, builds a tree for each, and
reports the configured distance_metric's mean value at every
geographic level. With --chart, it also renders a per-level bar chart
to the given path.
	`,
	SetFlags: setFlags,
	Run:      runCmd,
}

var chartPath string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&chartPath, "chart", "", "")
}

func runCmd(c *command.Command, args []string) error {
	if len(args) != 3 {
		return c.UsageError("expecting a configuration file and two microdata files")
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	metric := cfg.DistanceMetric
	if metric == "" {
		metric = "tvd"
	}

	treeA, err := buildTree(cfg, args[1])
	if err != nil {
		return fmt.Errorf("reading %q: %v", args[1], err)
	}
	treeB, err := buildTree(cfg, args[2])
	if err != nil {
		return fmt.Errorf("reading %q: %v", args[2], err)
	}

	byLevel, err := compare.ByLevel(treeA, treeB, metric)
	if err != nil {
		return err
	}

	for d := 0; d < len(byLevel); d++ {
		fmt.Fprintf(c.Stdout(), "level %d: mean %s = %.6f\n", d, metric, byLevel[d])
	}

	if chartPath != "" {
		if err := compare.Plot(byLevel, chartPath); err != nil {
			return err
		}
	}
	return nil
}

func buildTree(cfg *config.Config, path string) (*geotree.Node, error) {
	records, _, err := record.ReadAll(path, cfg.SeparatorRune())
	if err != nil {
		return nil, err
	}
	pi, err := histogram.Canonicalize(records, cfg.Queries)
	if err != nil {
		return nil, err
	}
	idx := histogram.Index(pi)
	return geotree.Build(records, config.ToGeoSpec(cfg), pi, idx, cfg.Queries)
}
