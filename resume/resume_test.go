// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package resume_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/js-arias/topdown/config"
	"github.com/js-arias/topdown/estimate"
	"github.com/js-arias/topdown/resume"
)

// spySampler records every rho/scale value Perturb calls it with, so
// a test can tell which depths were actually perturbed without
// depending on the randomness of a real mechanism.
type spySampler struct {
	gaussianRho []float64
}

func (s *spySampler) SampleGaussian(rho float64) int64 {
	s.gaussianRho = append(s.gaussianRho, rho)
	if math.IsInf(rho, 1) {
		return 0
	}
	return 7
}

func (s *spySampler) SampleLaplace(scale float64) int64 {
	return 0
}

func writeTable(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	line := func(fields []string) string {
		s := ""
		for i, v := range fields {
			if i > 0 {
				s += "\t"
			}
			s += v
		}
		return s + "\n"
	}
	if _, err := f.WriteString(line(header)); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, r := range rows {
		if _, err := f.WriteString(line(r)); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
}

// repeat returns n copies of row.
func repeat(row []string, n int) [][]string {
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, row)
	}
	return out
}

// TestCheckpointPerturbsOnlyNewLevels is spec.md §8 Scenario 5: a
// resumed run must leave every already-finalized checkpoint-depth
// level untouched by noise, and must apply the real privacy schedule
// to the levels it newly extends. This exercises the shiftedRho
// depth-alignment fix directly: a bug here means either finalized
// levels get re-perturbed or new levels silently get no noise at all.
func TestCheckpointPerturbsOnlyNewLevels(t *testing.T) {
	dir := t.TempDir()

	var rawRows [][]string
	rawRows = append(rawRows, repeat([]string{"1", "a", "0", "0"}, 2)...)
	rawRows = append(rawRows, repeat([]string{"1", "a", "0", "1"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"1", "a", "1", "1"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"1", "b", "0", "0"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"1", "b", "1", "0"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"2", "a", "0", "0"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"2", "a", "0", "1"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"2", "b", "0", "1"}, 1)...)
	rawRows = append(rawRows, repeat([]string{"2", "b", "1", "0"}, 2)...)
	rawRows = append(rawRows, repeat([]string{"2", "b", "1", "1"}, 1)...)
	inputPath := filepath.Join(dir, "raw.tsv")
	writeTable(t, inputPath, []string{"R", "C", "S", "A"}, rawRows)

	// The checkpoint file has one row per already-finalized unit at
	// the R level (depth 1), consistent with raw's R totals (R=1:6,
	// R=2:6) but no C column at all, so inferCheckpointDepth sees
	// only "R" in the header and reports checkpointDepth == 1.
	var processedRows [][]string
	processedRows = append(processedRows, repeat([]string{"1", "0", "0"}, 3)...)
	processedRows = append(processedRows, repeat([]string{"1", "0", "1"}, 1)...)
	processedRows = append(processedRows, repeat([]string{"1", "1", "0"}, 1)...)
	processedRows = append(processedRows, repeat([]string{"1", "1", "1"}, 1)...)
	processedRows = append(processedRows, repeat([]string{"2", "0", "0"}, 1)...)
	processedRows = append(processedRows, repeat([]string{"2", "0", "1"}, 2)...)
	processedRows = append(processedRows, repeat([]string{"2", "1", "0"}, 2)...)
	processedRows = append(processedRows, repeat([]string{"2", "1", "1"}, 1)...)
	processedPath := filepath.Join(dir, "processed.tsv")
	writeTable(t, processedPath, []string{"R", "S", "A"}, processedRows)

	outputPath := filepath.Join(dir, "out.tsv")

	cfg := &config.Config{
		GeoColumns: []string{"R", "C"},
		Queries:    []string{"S", "A"},
		// Entries 0 and 1 belong to depths the checkpoint already
		// finalized (root, R): shiftedRho must override them with
		// +Inf regardless of what is configured here. Only entry 2
		// (depth 2, the new C level) should ever reach the sampler.
		PrivacyParameters: []float64{1000, 1000, 5},
		Mechanism:         "discrete_gaussian",
		RootConstraints: []config.ConstraintSpec{
			{Kind: "sum_equals"},
		},
		InputPath:         inputPath,
		OutputPath:        outputPath,
		ProcessedDataPath: processedPath,
	}

	spy := &spySampler{}
	root, _, err := resume.Checkpoint(cfg, spy, estimate.KKTSolver{}, 1)
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if root == nil {
		t.Fatal("Checkpoint returned a nil root")
	}

	for _, rho := range spy.gaussianRho {
		if math.IsInf(rho, 1) {
			continue
		}
		if rho != 5 {
			t.Errorf("sampler called with rho %v, want +Inf or 5 (the one real, newly-extended level)", rho)
		}
	}

	var sawRealNoise bool
	for _, rho := range spy.gaussianRho {
		if rho == 5 {
			sawRealNoise = true
			break
		}
	}
	if !sawRealNoise {
		t.Error("no sampler call used the real schedule entry (rho=5); the newly-extended level was never perturbed")
	}
}
