// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package record implements reading and writing
// of the delimited record tables consumed and produced
// by the TopDown engine: a flat table whose rows carry
// geographic and query attribute columns plus columns
// that are ignored by the engine.
package record

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/js-arias/topdown/topdownerr"
)

// A Record is a single row of the input or output table,
// indexed by column name.
type Record map[string]string

// ReadAll reads every row of a delimited file with a header row.
// It returns the records in file order together with the header,
// also in file order.
//
// An empty file, or a file without a header row,
// is a data error (topdownerr.ErrData).
func ReadAll(path string, sep rune) ([]Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", topdownerr.ErrData, err)
	}
	defer f.Close()

	return readAll(bufio.NewReader(f), sep, path)
}

func readAll(r io.Reader, sep rune, name string) ([]Record, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %q: empty input", topdownerr.ErrData, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q: header: %v", topdownerr.ErrData, name, err)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q: %v", topdownerr.ErrData, name, err)
		}
		if len(row) != len(header) {
			return nil, nil, fmt.Errorf("%w: %q: row has %d fields, expecting %d", topdownerr.ErrData, name, len(row), len(header))
		}

		rec := make(Record, len(header))
		for i, h := range header {
			rec[h] = row[i]
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %q: no data rows", topdownerr.ErrData, name)
	}

	return records, header, nil
}

// SelectColumns validates that every column name in cols
// is present in header. A missing column is a data error.
func SelectColumns(header []string, cols []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, c := range cols {
		if !present[c] {
			return fmt.Errorf("%w: missing column %q", topdownerr.ErrData, c)
		}
	}
	return nil
}

// Filter returns the subset of records for which field equals value.
func Filter(records []Record, field, value string) []Record {
	var out []Record
	for _, r := range records {
		if r[field] == value {
			out = append(out, r)
		}
	}
	return out
}

// Distinct returns the distinct values observed for field,
// in the order they are first observed.
func Distinct(records []Record, field string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		v := r[field]
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// A Writer streams records to an underlying delimited writer,
// one row at a time, so the caller never has to materialize
// a whole output table in memory.
type Writer struct {
	w      *csv.Writer
	header []string
}

// NewWriter creates a Writer that writes rows following header,
// writing the header row immediately.
func NewWriter(w io.Writer, header []string, sep rune) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = sep
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("while writing header: %v", err)
	}
	return &Writer{w: cw, header: header}, nil
}

// WriteRecord writes a single record, in header order.
func (w *Writer) WriteRecord(r Record) error {
	row := make([]string, len(w.header))
	for i, h := range w.header {
		row[i] = r[h]
	}
	return w.w.Write(row)
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
