package compare_test

import (
	"math"
	"testing"

	"github.com/js-arias/topdown/compare"
	"github.com/js-arias/topdown/geotree"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestManhattan(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 0, 6}
	if got := compare.Manhattan(a, b); !almostEqual(got, 5) {
		t.Errorf("got %v, want 5", got)
	}
}

func TestEuclidean(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}
	if got := compare.Euclidean(a, b); !almostEqual(got, 5) {
		t.Errorf("got %v, want 5", got)
	}
}

func TestTVD(t *testing.T) {
	a := []float64{2, 0}
	b := []float64{0, 2}
	if got := compare.TVD(a, b); !almostEqual(got, 1) {
		t.Errorf("got %v, want 1", got)
	}
	a = []float64{1, 1}
	b = []float64{1, 1}
	if got := compare.TVD(a, b); !almostEqual(got, 0) {
		t.Errorf("got %v, want 0", got)
	}
}

func TestCosine(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	if got := compare.Cosine(a, b); !almostEqual(got, 0) {
		t.Errorf("got %v, want 0", got)
	}
	if got := compare.Cosine(a, a); !almostEqual(got, 1) {
		t.Errorf("got %v, want 1", got)
	}
}

func TestByLevel(t *testing.T) {
	a := &geotree.Node{
		V: []float64{4, 4},
		Children: []*geotree.Node{
			{V: []float64{2, 2}},
			{V: []float64{2, 2}},
		},
	}
	b := &geotree.Node{
		V: []float64{4, 4},
		Children: []*geotree.Node{
			{V: []float64{2, 2}},
			{V: []float64{2, 2}},
		},
	}

	got, err := compare.ByLevel(a, b, "tvd")
	if err != nil {
		t.Fatalf("ByLevel: %v", err)
	}
	for d, v := range got {
		if !almostEqual(v, 0) {
			t.Errorf("level %d: got %v, want 0", d, v)
		}
	}
}

func TestByLevelAgainstRef(t *testing.T) {
	root := &geotree.Node{V: []float64{3, 1}, VRef: []float64{2, 2}}
	got, err := compare.ByLevelAgainstRef(root, "manhattan")
	if err != nil {
		t.Fatalf("ByLevelAgainstRef: %v", err)
	}
	if !almostEqual(got[0], 2) {
		t.Errorf("level 0: got %v, want 2", got[0])
	}
}

func TestMetricRejectsUnknownName(t *testing.T) {
	if _, err := compare.Metric("bogus"); err == nil {
		t.Errorf("expecting an error for an unknown metric")
	}
}
