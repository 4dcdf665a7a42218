// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package workspace implements reading and writing
// of a topdown run manifest.
//
// A topdown workspace file is a tab-delimited file (TSV)
// used to record the different data files
// produced and consumed by a single TopDown run,
// next to its output.
// The resume and compare commands take the configuration file
// and do not read this manifest.
package workspace

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
)

// Dataset is a keyword to identify
// the kind of a dataset file in a workspace.
type Dataset string

// Valid dataset kinds.
const (
	// InputData is the raw record table
	// given to the Histogram Builder.
	InputData Dataset = "input"

	// OutputData is the microdata file
	// produced by Microdata Reconstruction.
	OutputData Dataset = "output"

	// ProcessedData is a previously emitted microdata file
	// used as the resume-from-checkpoint source.
	ProcessedData Dataset = "processed"

	// Diagnostics is the configured diagnostics directory,
	// where the run manifests are written.
	Diagnostics Dataset = "diagnostics"

	// Chart is the path of a rendered
	// per-level distance metric chart.
	Chart Dataset = "chart"

	// Config is the configuration file
	// used to produce this workspace.
	Config Dataset = "config"
)

// A Workspace represents a collection of paths
// for the files produced and consumed by a TopDown run.
type Workspace struct {
	name  string
	paths map[Dataset]string

	// ProcessedDepth is the geographic depth
	// already present in the processed data,
	// when the workspace records a resumed run.
	// It is held in memory only:
	// Write does not store it and Read does not restore it.
	ProcessedDepth int
}

// New creates a new empty workspace.
func New() *Workspace {
	return &Workspace{
		paths: make(map[Dataset]string),
	}
}

var header = []string{
	"dataset",
	"path",
}

// Read reads a workspace manifest from a TSV file.
//
// The TSV must contain the following fields:
//
//   - dataset, for the kind of file
//   - path, for the path of the file
//
// Here is an example file:
//
//	# topdown workspace
//	dataset	path
//	input	microdato-personas.csv
//	output	personas-noisy.csv
//	diagnostics	out/diagnostics
func Read(name string) (*Workspace, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tsv := csv.NewReader(f)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("on file %q: header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	w := New()
	w.name = name
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "dataset"
		d := Dataset(row[fields[f]])

		f = "path"
		path := row[fields[f]]
		w.paths[d] = path
	}

	return w, nil
}

// Add adds the filepath of a dataset to a given workspace.
// It returns the previous value for the dataset.
func (w *Workspace) Add(set Dataset, path string) string {
	prev := w.paths[set]
	if path == "" {
		delete(w.paths, set)
		return prev
	}

	w.paths[set] = path
	return prev
}

// Path returns the path of the given dataset.
func (w *Workspace) Path(set Dataset) string {
	return w.paths[set]
}

// Sets returns the datasets defined on a workspace.
func (w *Workspace) Sets() []Dataset {
	var sets []Dataset
	for s := range w.paths {
		sets = append(sets, s)
	}
	slices.Sort(sets)
	return sets
}

// SetName sets the workspace manifest file name.
func (w *Workspace) SetName(name string) {
	w.name = name
}

// Write writes a workspace manifest into a file.
func (w *Workspace) Write() (err error) {
	f, err := os.Create(w.name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# topdown workspace\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", w.name, err)
	}

	sets := w.Sets()
	for _, s := range sets {
		row := []string{
			string(s),
			w.paths[s],
		}
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", w.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", w.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", w.name, err)
	}
	return nil
}
