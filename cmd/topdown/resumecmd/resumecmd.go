// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package resumecmd implements the topdown resume command: continuing
// a run from a partial-depth synthetic microdata checkpoint (spec.md
// §5, "Resumable runs").
package resumecmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/js-arias/command"
	"github.com/js-arias/topdown/config"
	"github.com/js-arias/topdown/estimate"
	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/logging"
	"github.com/js-arias/topdown/measure"
	"github.com/js-arias/topdown/microdata"
	"github.com/js-arias/topdown/record"
	"github.com/js-arias/topdown/resume"
	"github.com/js-arias/topdown/runinfo"
	"github.com/js-arias/topdown/topdownerr"
	"github.com/js-arias/topdown/workspace"
)

var Command = &command.Command{
	Usage: "resume [--seed1 <value>] [--seed2 <value>] [--workers <n>] <config-file>",
	Short: "resume a run from a processed-data checkpoint",
	Long: `
Command resume rebuilds the geographic tree up to the depth reached by
the configured processed_data_path checkpoint, extends it with the
remaining configured geographic levels, perturbs and estimates only
those new levels, and emits the completed synthetic microdata.
	`,
	SetFlags: setFlags,
	Run:      runCmd,
}

var seed1, seed2 uint64
var workers int

func setFlags(c *command.Command) {
	c.Flags().Uint64Var(&seed1, "seed1", 1, "")
	c.Flags().Uint64Var(&seed2, "seed2", 2, "")
	c.Flags().IntVar(&workers, "workers", 1, "number of concurrent workers used to estimate each level of the resumed tree")
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

	if cfg.ProcessedDataPath == "" {
		return fmt.Errorf("%w: processed_data_path is required to resume", topdownerr.ErrConfig)
	}

	sampler := measure.NewCKSSampler(seed1, seed2)
	solver := estimate.KKTSolver{}
	root, pi, err := resume.Checkpoint(cfg, sampler, solver, workers)
	if err != nil {
		return err
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
	slog.Info("resume complete", "nodes", root.CountNodes(), "infeasible", infeasible)

	if err := writeManifests(cfg, args[0], root, infeasible); err != nil {
		slog.Warn("could not write run manifest", "error", err)
	}

	if infeasible > 0 {
		return fmt.Errorf("%w: %d node(s) could not be solved", topdownerr.ErrInfeasible, infeasible)
	}
	return nil
}

// writeManifests records, alongside the emitted microdata, the
// workspace file-path manifest and the run-outcome manifest, mirroring
// what the run command writes, with processed_data_path also named,
// recording which checkpoint this run continued from.
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
	ws.Add(workspace.ProcessedData, cfg.ProcessedDataPath)
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
