package histogram_test

import (
	"reflect"
	"testing"

	"github.com/js-arias/topdown/histogram"
	"github.com/js-arias/topdown/record"
)

func sampleRecords() []record.Record {
	// Scenario 1 from the spec's testable properties:
	// Q = [S, A], S,A in {0,1}; R=1: [2,1,0,1], R=2: [1,0,2,1]
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

func TestCanonicalize(t *testing.T) {
	recs := sampleRecords()
	pi, err := histogram.Canonicalize(recs, []string{"S", "A"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := []histogram.Tuple{
		{"0", "0"}, {"0", "1"}, {"1", "0"}, {"1", "1"},
	}
	if !reflect.DeepEqual(pi, want) {
		t.Fatalf("pi: got %v, want %v", pi, want)
	}
}

func TestHistogram(t *testing.T) {
	recs := sampleRecords()
	pi, err := histogram.Canonicalize(recs, []string{"S", "A"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	idx := histogram.Index(pi)

	root := histogram.Histogram(recs, pi, idx, []string{"S", "A"})
	if want := []float64{3, 1, 2, 2}; !reflect.DeepEqual(root, want) {
		t.Fatalf("root: got %v, want %v", root, want)
	}

	r1 := histogram.Histogram(record.Filter(recs, "R", "1"), pi, idx, []string{"S", "A"})
	if want := []float64{2, 1, 0, 1}; !reflect.DeepEqual(r1, want) {
		t.Fatalf("r1: got %v, want %v", r1, want)
	}

	r2 := histogram.Histogram(record.Filter(recs, "R", "2"), pi, idx, []string{"S", "A"})
	if want := []float64{1, 0, 2, 1}; !reflect.DeepEqual(r2, want) {
		t.Fatalf("r2: got %v, want %v", r2, want)
	}
}

func TestHistogramIdempotence(t *testing.T) {
	// P7: histogram(histogram-inverse(v), pi) == v
	recs := sampleRecords()
	pi, err := histogram.Canonicalize(recs, []string{"S", "A"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	idx := histogram.Index(pi)
	v := histogram.Histogram(recs, pi, idx, []string{"S", "A"})

	inv := histogram.Inverse(v, pi, []string{"S", "A"})
	got := histogram.Histogram(inv, pi, idx, []string{"S", "A"})
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip: got %v, want %v", got, v)
	}
}
