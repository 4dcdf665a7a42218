// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package resume implements spec.md §5's resumable runs: rebuilding
// the geographic tree from a partial-depth synthetic microdata
// checkpoint, extending it with the geographic levels below the
// checkpoint, and measuring and estimating only what is new.
package resume

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/js-arias/topdown/config"
	"github.com/js-arias/topdown/estimate"
	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/measure"
	"github.com/js-arias/topdown/record"
	"github.com/js-arias/topdown/topdownerr"
)

// Checkpoint orchestrates a resumed run against cfg: it rebuilds the
// tree from cfg.ProcessedDataPath up to the depth that checkpoint
// reaches, validates that depth against the current configuration
// (any mismatch is a fatal Resume error, Design Note (c): no partial
// mutation), extends the tree with the remaining geographic levels
// sourced from cfg.InputPath, measures only the new levels, estimates
// starting at the checkpoint depth, and returns the completed tree
// together with Π so the caller can emit it.
// workers selects the estimation path: 1 runs estimate.EstimateTree,
// anything greater runs estimate.EstimateTreeConcurrent with that
// many workers per level (spec.md §5's concurrency model), since a
// resumed run's new levels are exactly the ones wide enough for
// worker-pool estimation to matter.
func Checkpoint(cfg *config.Config, s measure.Sampler, solver estimate.Solver, workers int) (*geotree.Node, []histogram.Tuple, error) {
	raw, _, err := record.ReadAll(cfg.InputPath, cfg.SeparatorRune())
	if err != nil {
		return nil, nil, err
	}
	processed, _, err := record.ReadAll(cfg.ProcessedDataPath, cfg.SeparatorRune())
	if err != nil {
		return nil, nil, err
	}

	pi, err := histogram.Canonicalize(raw, cfg.Queries)
	if err != nil {
		return nil, nil, err
	}
	idx := histogram.Index(pi)

	checkpointDepth, err := inferCheckpointDepth(processed, cfg.GeoColumns)
	if err != nil {
		return nil, nil, err
	}
	if checkpointDepth > cfg.Depth() {
		return nil, nil, fmt.Errorf("%w: checkpoint depth %d exceeds configured depth %d", topdownerr.ErrResume, checkpointDepth, cfg.Depth())
	}

	geo := config.ToGeoSpec(cfg)

	checkpointGeo := geotree.GeoSpec{
		Columns:     cfg.GeoColumns[:checkpointDepth],
		Constraints: geo.Constraints,
		Root:        geo.Root,
	}
	root, err := geotree.Build(processed, checkpointGeo, pi, idx, cfg.Queries)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: rebuilding checkpoint tree: %v", topdownerr.ErrResume, err)
	}
	if got := len(pi); got == 0 {
		return nil, nil, fmt.Errorf("%w: empty histogram domain", topdownerr.ErrResume)
	}
	root.MarkState(geotree.SolvedInt)

	remaining := cfg.GeoColumns[checkpointDepth:cfg.Depth()]
	if len(remaining) > 0 {
		if err := extendLeaves(root, remaining, geo.Constraints, raw, pi, idx, cfg.Queries); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", topdownerr.ErrResume, err)
		}
	}

	if checkpointDepth+1 > len(cfg.PrivacyParameters) {
		return nil, nil, fmt.Errorf("%w: privacy_parameters has no entries for the resumed levels", topdownerr.ErrConfig)
	}
	mech, err := measure.ParseMechanism(cfg.Mechanism)
	if err != nil {
		return nil, nil, err
	}
	newRho := cfg.PrivacyParameters[checkpointDepth+1:]
	if len(newRho) > 0 {
		if err := measure.Perturb(root, mech, shiftedRho(checkpointDepth, newRho), s); err != nil {
			return nil, nil, err
		}
	}

	if workers > 1 {
		if err := estimate.EstimateTreeConcurrent(root, solver, workers); err != nil {
			return nil, nil, fmt.Errorf("estimating resumed levels: %v", err)
		}
	} else {
		if err := estimate.EstimateTree(root, solver); err != nil {
			return nil, nil, fmt.Errorf("estimating resumed levels: %v", err)
		}
	}

	slog.Info("resumed run", "checkpoint_depth", checkpointDepth, "target_depth", cfg.Depth())
	return root, pi, nil
}

// shiftedRho builds a rho slice aligned to the rebuilt tree's
// absolute depth, as measure.Perturb requires: geotree.Build always
// numbers its root at depth 0 regardless of how many geographic
// columns that root's tree consumes, so the checkpoint tree rebuilt
// from processed data already carries the same depth numbering a
// fresh full build would (depth 0 is the whole-input root, depth d is
// the d-th geo_columns level) — there is no local/global depth
// rebasing to do. Depths 0..checkpointDepth are the levels the
// checkpoint already finalized as authoritative integers and must not
// be perturbed again, so they get math.Inf(1); both
// CKSSampler.SampleGaussian and SampleLaplace already treat +Inf
// rho/scale as "no noise" (see measure/sampler.go), so these entries
// perturb nothing. Depths checkpointDepth+1..L get the real schedule
// values for the newly extended levels.
func shiftedRho(checkpointDepth int, newRho []float64) []float64 {
	out := make([]float64, checkpointDepth+1+len(newRho))
	for d := 0; d <= checkpointDepth; d++ {
		out[d] = math.Inf(1)
	}
	copy(out[checkpointDepth+1:], newRho)
	return out
}

// extendLeaves walks every leaf of the checkpoint tree and extends it
// with the remaining geographic levels, sourcing each leaf's record
// subset from raw by filtering on the leaf's own geography labels.
func extendLeaves(root *geotree.Node, remaining []string, cons map[string][]geotree.Template, raw []record.Record, pi []histogram.Tuple, idx map[string]int, queries []string) error {
	return root.Walk(func(n *geotree.Node) error {
		if !n.IsLeaf() {
			return nil
		}
		subset := raw
		for col, val := range n.Labels {
			subset = record.Filter(subset, col, val)
		}
		return geotree.Extend(n, remaining, cons, subset, pi, idx, queries)
	})
}

// inferCheckpointDepth returns the number of geography columns present
// in processed's header that match the front of geoColumns, in order:
// the checkpoint file's own geographic columns name how deep it goes.
func inferCheckpointDepth(processed []record.Record, geoColumns []string) (int, error) {
	if len(processed) == 0 {
		return 0, fmt.Errorf("%w: the processed data file has no rows", topdownerr.ErrResume)
	}
	header := processed[0]
	depth := 0
	for _, col := range geoColumns {
		if _, ok := header[col]; !ok {
			break
		}
		depth++
	}
	if depth == 0 {
		return 0, fmt.Errorf("%w: the processed data file has none of the configured geo_columns", topdownerr.ErrResume)
	}
	return depth, nil
}
