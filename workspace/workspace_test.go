// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package workspace_test

import (
	"os"
	"reflect"
	"slices"
	"testing"

	"github.com/js-arias/topdown/workspace"
)

type setPath struct {
	set  workspace.Dataset
	path string
}

func TestWorkspace(t *testing.T) {
	w := workspace.New()

	sets := []setPath{
		{workspace.InputData, "personas.csv"},
		{workspace.OutputData, "personas-noisy.csv"},
		{workspace.ProcessedData, "personas-comuna.csv"},
		{workspace.Diagnostics, "out/diagnostics"},
		{workspace.Chart, "out/tvd-by-level.png"},
	}

	for _, s := range sets {
		w.Add(s.set, s.path)
	}
	testWorkspace(t, w, sets)

	name := "tmp-workspace-for-test.tab"
	defer os.Remove(name)

	w.SetName(name)
	if err := w.Write(); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	nw, err := workspace.Read(name)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	testWorkspace(t, nw, sets)
}

func testWorkspace(t testing.TB, w *workspace.Workspace, sets []setPath) {
	t.Helper()

	for _, s := range sets {
		if path := w.Path(s.set); path != s.path {
			t.Errorf("set %s: got path %q, want %q", s.set, path, s.path)
		}
	}
	datasets := make([]workspace.Dataset, 0, len(sets))
	for _, v := range sets {
		datasets = append(datasets, v.set)
	}
	slices.Sort(datasets)

	if ls := w.Sets(); !reflect.DeepEqual(ls, datasets) {
		t.Errorf("sets: got %v, want %v", ls, datasets)
	}
}

func TestWorkspaceRemove(t *testing.T) {
	w := workspace.New()
	w.Add(workspace.InputData, "in.csv")
	prev := w.Add(workspace.InputData, "")
	if prev != "in.csv" {
		t.Errorf("previous path: got %q, want %q", prev, "in.csv")
	}
	if path := w.Path(workspace.InputData); path != "" {
		t.Errorf("path after removal: got %q, want empty", path)
	}
}
