// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package runinfo implements reading and writing
// of a TopDown run manifest: the privacy parameters,
// mechanism, depth and outcome of a single run,
// kept alongside the emitted microdata as a record
// of how the file was produced.
// No topdown command reads it back.
package runinfo

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Param is a keyword to identify
// the type of parameter in a run manifest file.
type Param string

// Valid parameters.
const (
	// Mechanism is the noise mechanism used
	// (discrete_gaussian or discrete_laplace).
	Mechanism Param = "mechanism"

	// Depth is the number of geographic levels processed,
	// not counting the root.
	Depth Param = "depth"

	// Privacy is the comma-separated list of
	// per-level privacy parameters, root first.
	Privacy Param = "privacy"

	// Infeasible is the number of nodes that reached
	// the Infeasible state at the end of estimation.
	Infeasible Param = "infeasible"

	// Nodes is the total number of nodes in the tree.
	Nodes Param = "nodes"
)

// Info represents the manifest of a single TopDown run.
type Info struct {
	name string // file name

	mechanism  string
	depth      int
	privacy    []float64
	infeasible int
	nodes      int
}

// New creates an empty run manifest.
func New(name string) *Info {
	return &Info{
		name:      name,
		mechanism: "discrete_laplace",
	}
}

var header = []string{
	"parameter",
	"value",
}

// Read reads a run manifest from a TSV file.
//
// The TSV must contain the following fields:
//
//   - parameter, the name of the parameter
//   - value, the value of the parameter
//
// Here is an example file:
//
//	# topdown run manifest
//	parameter	value
//	mechanism	discrete_laplace
//	depth	2
//	privacy	0.2,0.4,0.8
//	nodes	19
//	infeasible	0
func Read(name string) (*Info, error) {
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

	ri := New(name)
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "parameter"
		p := Param(strings.ToLower(row[fields[f]]))

		f = "value"
		switch p {
		case Mechanism:
			ri.mechanism = row[fields[f]]
		case Depth:
			d, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			ri.depth = d
		case Privacy:
			ri.privacy, err = parsePrivacy(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
		case Infeasible:
			n, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			ri.infeasible = n
		case Nodes:
			n, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			ri.nodes = n
		}
	}
	return ri, nil
}

func parsePrivacy(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	rho := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		rho[i] = v
	}
	return rho, nil
}

// Mechanism returns the noise mechanism recorded in the manifest.
func (ri *Info) Mechanism() string {
	return ri.mechanism
}

// Depth returns the recorded geographic depth.
func (ri *Info) Depth() int {
	return ri.depth
}

// Privacy returns the recorded per-level privacy parameters.
func (ri *Info) Privacy() []float64 {
	return ri.privacy
}

// Infeasible returns the recorded number of infeasible nodes.
func (ri *Info) Infeasible() int {
	return ri.infeasible
}

// Nodes returns the recorded total number of nodes.
func (ri *Info) Nodes() int {
	return ri.nodes
}

// SetMechanism sets the noise mechanism of the manifest.
func (ri *Info) SetMechanism(m string) {
	ri.mechanism = m
}

// SetDepth sets the geographic depth of the manifest.
func (ri *Info) SetDepth(d int) {
	ri.depth = d
}

// SetPrivacy sets the per-level privacy parameters of the manifest.
func (ri *Info) SetPrivacy(rho []float64) {
	ri.privacy = rho
}

// SetInfeasible sets the number of infeasible nodes of the manifest.
func (ri *Info) SetInfeasible(n int) {
	ri.infeasible = n
}

// SetNodes sets the total number of nodes of the manifest.
func (ri *Info) SetNodes(n int) {
	ri.nodes = n
}

// Write writes a run manifest into a file.
func (ri *Info) Write() (err error) {
	f, err := os.Create(ri.name)
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
	fmt.Fprintf(bw, "# topdown run manifest\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", ri.name, err)
	}

	rows := [][]string{
		{string(Mechanism), ri.mechanism},
		{string(Depth), strconv.Itoa(ri.depth)},
		{string(Privacy), joinPrivacy(ri.privacy)},
		{string(Nodes), strconv.Itoa(ri.nodes)},
		{string(Infeasible), strconv.Itoa(ri.infeasible)},
	}
	for _, row := range rows {
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", ri.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", ri.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", ri.name, err)
	}
	return nil
}

func joinPrivacy(rho []float64) string {
	fields := make([]string, len(rho))
	for i, v := range rho {
		fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(fields, ",")
}
