// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package histogram implements Component A of the TopDown engine:
// it turns a record subset into a dense contingency vector
// indexed by the canonical cross-product of the query attribute values.
package histogram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/js-arias/topdown/record"
	"github.com/js-arias/topdown/topdownerr"
)

// A Tuple is one cross-product value tuple,
// one value per query attribute, in query-attribute order.
type Tuple []string

// key returns a string uniquely identifying a tuple,
// used as the building block of the lexicographic sort
// and of the O(1) lookup index.
func (t Tuple) key() string {
	return strings.Join(t, "\x1f")
}

// Canonicalize computes Π: the set of distinct values observed
// for each query attribute in records, frozen into the Cartesian
// product of those value sets, sorted lexicographically by
// (q1, ..., qk). Π is computed once from the full input and is
// shared, by reference, by every node of the geographic tree.
func Canonicalize(records []record.Record, queries []string) ([]Tuple, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no query attributes given", topdownerr.ErrConfig)
	}

	values := make([][]string, len(queries))
	for i, q := range queries {
		values[i] = record.Distinct(records, q)
		sort.Strings(values[i])
		if len(values[i]) == 0 {
			return nil, fmt.Errorf("%w: no observed values for query attribute %q", topdownerr.ErrData, q)
		}
	}

	pi := cartesian(values)
	sort.Slice(pi, func(i, j int) bool {
		return less(pi[i], pi[j])
	})
	return pi, nil
}

// cartesian computes the Cartesian product of a set of value lists,
// one list per query attribute.
func cartesian(values [][]string) []Tuple {
	total := 1
	for _, v := range values {
		total *= len(v)
	}
	pi := make([]Tuple, total)
	for i := range pi {
		pi[i] = make(Tuple, len(values))
	}

	stride := total
	for col, v := range values {
		stride /= len(v)
		for i := range pi {
			pi[i][col] = v[(i/stride)%len(v)]
		}
	}
	return pi
}

func less(a, b Tuple) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Index builds the lexicographic-key-to-position map used
// to align a histogram to Π in O(1) per record.
func Index(pi []Tuple) map[string]int {
	idx := make(map[string]int, len(pi))
	for i, t := range pi {
		idx[t.key()] = i
	}
	return idx
}

// Histogram groups subset by queries, counts occurrences,
// and aligns the counts to Π, filling missing cells with 0.
// The result has length len(pi), contains no negative values,
// and sums to len(subset).
func Histogram(subset []record.Record, pi []Tuple, idx map[string]int, queries []string) []float64 {
	v := make([]float64, len(pi))
	buf := make(Tuple, len(queries))
	for _, r := range subset {
		for i, q := range queries {
			buf[i] = r[q]
		}
		if pos, ok := idx[buf.key()]; ok {
			v[pos]++
		}
	}
	return v
}

// Inverse expands a non-negative integer contingency vector
// back into records carrying only the query attribute values
// from Π; it is the right inverse of Histogram, used by
// microdata.Emit and to check P7 (histogram idempotence).
func Inverse(v []float64, pi []Tuple, queries []string) []record.Record {
	var out []record.Record
	for i, count := range v {
		n := int64(count + 0.5)
		if n <= 0 {
			continue
		}
		for k := int64(0); k < n; k++ {
			rec := make(record.Record, len(queries))
			for j, q := range queries {
				rec[q] = pi[i][j]
			}
			out = append(out, rec)
		}
	}
	return out
}
