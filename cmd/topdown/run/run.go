// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package run implements the topdown run command: the full
// build -> measure -> estimate -> emit pipeline of spec.md §4.
package run

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/js-arias/command"
	"github.com/js-arias/topdown/config"
	"github.com/js-arias/topdown/estimate"
	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/logging"
	"github.com/js-arias/topdown/measure"
	"github.com/js-arias/topdown/microdata"
	"github.com/js-arias/topdown/record"
	"github.com/js-arias/topdown/runinfo"
	"github.com/js-arias/topdown/topdownerr"
	"github.com/js-arias/topdown/workspace"
)

var Command = &command.Command{
	Usage: "run [--seed1 <value>] [--seed2 <value>] [--workers <n>] <config-file>",
	Short: "run the full synthetic microdata pipeline",
	Long: `
Command run reads a topdown configuration file, builds the geographic
contingency tree from the raw microdata it names, perturbs every cell
with the configured noise mechanism, estimates a non-negative,
edit-consistent, hierarchically-consistent integer solution for every
node, and emits one synthetic record per unit to the configured output
path.

The exit status is zero if every node of the tree reached SOLVED_INT,
and non-zero if any node was left INFEASIBLE.
	`,
	SetFlags: setFlags,
	Run:      runCmd,
}

var seed1, seed2 uint64
var workers int

func setFlags(c *command.Command) {
	c.Flags().Uint64Var(&seed1, "seed1", 1, "")
	c.Flags().Uint64Var(&seed2, "seed2", 2, "")
	c.Flags().IntVar(&workers, "workers", 1, "number of concurrent workers used to estimate each level of the tree")
}

func runCmd(c *command.Command, args []string) error {
	if len(args) != 1 {
		return c.UsageError("expecting a single configuration file argument")
	}

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	logging.Configure(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr)

	raw, _, err := record.ReadAll(cfg.InputPath, cfg.SeparatorRune())
	if err != nil {
		return err
	}

	pi, err := histogram.Canonicalize(raw, cfg.Queries)
	if err != nil {
		return err
	}
	idx := histogram.Index(pi)

	slog.Info("building tree", "depth", cfg.Depth(), "domain_size", len(pi))
	root, err := geotree.Build(raw, config.ToGeoSpec(cfg), pi, idx, cfg.Queries)
	if err != nil {
		return err
	}

	mech, err := measure.ParseMechanism(cfg.Mechanism)
	if err != nil {
		return err
	}
	sampler := measure.NewCKSSampler(seed1, seed2)
	if err := measure.Perturb(root, mech, cfg.PrivacyParameters, sampler); err != nil {
		return err
	}

	solver := estimate.KKTSolver{}
	if err := estimate.EstimateRoot(root, solver); err != nil {
		return fmt.Errorf("estimating root: %v", err)
	}
	if workers > 1 {
		if err := estimate.EstimateTreeConcurrent(root, solver, workers); err != nil {
			return fmt.Errorf("estimating tree: %v", err)
		}
	} else {
		if err := estimate.EstimateTree(root, solver); err != nil {
			return fmt.Errorf("estimating tree: %v", err)
		}
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", topdownerr.ErrData, err)
	}
	defer out.Close()

	header := append(append([]string{}, cfg.GeoColumns[:cfg.Depth()]...), cfg.Queries...)
	w, err := record.NewWriter(out, header, cfg.SeparatorRune())
	if err != nil {
		return err
	}
	if err := microdata.Emit(w, root, pi, cfg.Queries); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	infeasible := root.CountByState(geotree.Infeasible)
	slog.Info("run complete", "nodes", root.CountNodes(), "infeasible", infeasible)

	if err := writeManifests(cfg, args[0], root, infeasible); err != nil {
		slog.Warn("could not write run manifest", "error", err)
	}

	if infeasible > 0 {
		return fmt.Errorf("%w: %d node(s) could not be solved", topdownerr.ErrInfeasible, infeasible)
	}
	return nil
}

// writeManifests records, alongside the emitted microdata, the
// workspace file-path manifest and the run-outcome manifest, so that
// how the output was produced is recorded next to it. The resume and
// compare commands do not read these manifests.
func writeManifests(cfg *config.Config, configPath string, root *geotree.Node, infeasible int) error {
	dir := cfg.DiagnosticsPath
	if dir == "" {
		dir = filepath.Dir(cfg.OutputPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating diagnostics directory %q: %v", dir, err)
	}

	ws := workspace.New()
	ws.SetName(filepath.Join(dir, "workspace.tab"))
	ws.Add(workspace.Config, configPath)
	ws.Add(workspace.InputData, cfg.InputPath)
	ws.Add(workspace.OutputData, cfg.OutputPath)
	ws.Add(workspace.Diagnostics, cfg.DiagnosticsPath)
	if err := ws.Write(); err != nil {
		return fmt.Errorf("writing workspace manifest: %v", err)
	}

	ri := runinfo.New(filepath.Join(dir, "run.tab"))
	ri.SetMechanism(cfg.Mechanism)
	ri.SetDepth(cfg.Depth())
	ri.SetPrivacy(cfg.PrivacyParameters)
	ri.SetNodes(root.CountNodes())
	ri.SetInfeasible(infeasible)
	if err := ri.Write(); err != nil {
		return fmt.Errorf("writing run manifest: %v", err)
	}
	return nil
}
