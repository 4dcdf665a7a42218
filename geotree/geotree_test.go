package geotree_test

import (
	"reflect"
	"testing"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/record"
)

func sampleRecords() []record.Record {
	mk := func(r, s, a string) record.Record {
		return record.Record{"R": r, "S": s, "A": a}
	}
	var recs []record.Record
	add := func(r, s, a string, n int) {
		for i := 0; i < n; i++ {
			recs = append(recs, mk(r, s, a))
		}
	}
	add("1", "0", "0", 2)
	add("1", "0", "1", 1)
	add("1", "1", "1", 1)
	add("2", "0", "0", 1)
	add("2", "1", "0", 2)
	add("2", "1", "1", 1)
	return recs
}

func buildSampleTree(t *testing.T) (*geotree.Node, []histogram.Tuple) {
	t.Helper()
	recs := sampleRecords()
	pi, err := histogram.Canonicalize(recs, []string{"S", "A"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	idx := histogram.Index(pi)

	geo := geotree.GeoSpec{
		Columns: []string{"R"},
		Root: []geotree.Template{
			{Kind: geotree.SumEquals},
		},
	}
	root, err := geotree.Build(recs, geo, pi, idx, []string{"S", "A"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root, pi
}

func TestBuild(t *testing.T) {
	root, _ := buildSampleTree(t)

	if want := []float64{3, 1, 2, 2}; !reflect.DeepEqual(root.V, want) {
		t.Fatalf("root.V: got %v, want %v", root.V, want)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children: got %d, want 2", len(root.Children))
	}
	if root.Children[0].ID != "1" || root.Children[1].ID != "2" {
		t.Fatalf("child order: got %v, %v", root.Children[0].ID, root.Children[1].ID)
	}
	if want := []float64{2, 1, 0, 1}; !reflect.DeepEqual(root.Children[0].V, want) {
		t.Fatalf("R1: got %v, want %v", root.Children[0].V, want)
	}
	if want := []float64{1, 0, 2, 1}; !reflect.DeepEqual(root.Children[1].V, want) {
		t.Fatalf("R2: got %v, want %v", root.Children[1].V, want)
	}
	if !root.Children[0].IsLeaf() {
		t.Errorf("R1 should be a leaf")
	}

	if len(root.Constraints) != 1 {
		t.Fatalf("root constraints: got %d, want 1", len(root.Constraints))
	}
	if !root.Constraints[0].Eval(root.V) {
		t.Errorf("root constraint should hold on root.V")
	}
}

func TestIterateByLevels(t *testing.T) {
	root, _ := buildSampleTree(t)
	levels := root.IterateByLevels()
	if len(levels) != 2 {
		t.Fatalf("levels: got %d, want 2", len(levels))
	}
	if len(levels[0]) != 1 || len(levels[1]) != 2 {
		t.Fatalf("level sizes: got %d, %d", len(levels[0]), len(levels[1]))
	}
}

func TestCountNodes(t *testing.T) {
	root, _ := buildSampleTree(t)
	if n := root.CountNodes(); n != 3 {
		t.Fatalf("CountNodes: got %d, want 3", n)
	}
}

func TestConstraintLift(t *testing.T) {
	c := geotree.Constraint{Kind: geotree.SumEquals, Total: 4}
	lifted := c.Lift(2, 2, 6)
	want := []float64{0, 0, 1, 1, 0, 0}
	if !reflect.DeepEqual(lifted.A, want) {
		t.Fatalf("lifted.A: got %v, want %v", lifted.A, want)
	}
	if lifted.B != 4 {
		t.Fatalf("lifted.B: got %v, want 4", lifted.B)
	}
	if lifted.Kind != geotree.LinearEquals {
		t.Fatalf("lifted.Kind: got %v, want LinearEquals", lifted.Kind)
	}
}

func TestTemplateBindCapturesByValue(t *testing.T) {
	// Regression for the closure-over-loop-variable hazard: binding
	// the same template to different totals must not alias.
	tmpl := geotree.Template{Kind: geotree.SumEquals}
	totals := []float64{2, 5, 9}
	var bound []geotree.Constraint
	for _, total := range totals {
		bound = append(bound, tmpl.Bind(total))
	}
	for i, c := range bound {
		if c.Total != totals[i] {
			t.Errorf("bound[%d].Total: got %v, want %v", i, c.Total, totals[i])
		}
	}
}
