package microdata_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/microdata"
	"github.com/js-arias/topdown/record"
)

func samplePi() ([]histogram.Tuple, []string) {
	queries := []string{"AGE", "SEX"}
	pi := []histogram.Tuple{
		{"adult", "f"},
		{"adult", "m"},
		{"child", "f"},
		{"child", "m"},
	}
	return pi, queries
}

func TestEmitLeafOrderAndLabels(t *testing.T) {
	pi, queries := samplePi()
	root := &geotree.Node{
		ID: "",
		Children: []*geotree.Node{
			{
				ID:     "1",
				Labels: map[string]string{"R": "1"},
				V:      []float64{2, 1, 0, 1},
				State:  geotree.SolvedInt,
			},
			{
				ID:     "2",
				Labels: map[string]string{"R": "2"},
				V:      []float64{1, 0, 2, 1},
				State:  geotree.SolvedInt,
			},
		},
	}

	var buf bytes.Buffer
	w, err := record.NewWriter(&buf, []string{"R", "AGE", "SEX"}, '\t')
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := microdata.Emit(w, root, pi, queries); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// header + (2+1+0+1) + (1+0+2+1) = header + 4 + 4 = 9 lines.
	if len(lines) != 9 {
		t.Fatalf("got %d lines, want 9:\n%s", len(lines), buf.String())
	}
	for _, l := range lines[1:5] {
		if !strings.HasPrefix(l, "1\t") {
			t.Errorf("expecting a unit of R=1, got %q", l)
		}
	}
	for _, l := range lines[5:] {
		if !strings.HasPrefix(l, "2\t") {
			t.Errorf("expecting a unit of R=2, got %q", l)
		}
	}
}

func TestEmitSkipsUnsolvedLeafAndKeepsGoing(t *testing.T) {
	// An infeasible leaf must not abort the stream: its own records
	// are left out, but its solved siblings still get emitted.
	pi, queries := samplePi()
	root := &geotree.Node{
		ID: "",
		Children: []*geotree.Node{
			{
				ID:     "1",
				Labels: map[string]string{"R": "1"},
				V:      []float64{1, 0, 0, 0},
				State:  geotree.Infeasible,
			},
			{
				ID:     "2",
				Labels: map[string]string{"R": "2"},
				V:      []float64{0, 0, 1, 0},
				State:  geotree.SolvedInt,
			},
		},
	}
	var buf bytes.Buffer
	w, err := record.NewWriter(&buf, []string{"R", "AGE", "SEX"}, '\t')
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := microdata.Emit(w, root, pi, queries); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// header + the one unit from the solved leaf R=2.
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "2\t") {
		t.Errorf("expecting the surviving unit to come from R=2, got %q", lines[1])
	}
}
