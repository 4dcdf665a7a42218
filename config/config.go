// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package config loads and validates the configuration surface
// described by spec.md §6: which geography columns form the
// hierarchy, which attributes are tabulated, the privacy parameters
// and mechanism, the edit constraints, and the I/O paths a topdown run
// needs.
package config

import (
	"fmt"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/topdownerr"
)

// Config is the full configuration of a topdown run, unmarshaled from
// a YAML file and environment overrides by Load.
type Config struct {
	// GeoColumns names the geography hierarchy, root first, one
	// column name per level of the geographic tree (spec.md §3,
	// §6 "geo_columns").
	GeoColumns []string `yaml:"geo_columns" koanf:"geo_columns" validate:"required,min=1"`

	// ProcessUntil truncates GeoColumns at the named level,
	// inclusive; empty means process every level.
	ProcessUntil string `yaml:"process_until,omitempty" koanf:"process_until"`

	// Queries names the attributes tabulated into the contingency
	// vector (spec.md §3, "Q").
	Queries []string `yaml:"queries" koanf:"queries" validate:"required,min=1"`

	// PrivacyParameters has one entry per level actually processed
	// (Depth()+1 entries: root, then one per geography level),
	// interpreted as rho for discrete_gaussian or epsilon for
	// discrete_laplace.
	PrivacyParameters []float64 `yaml:"privacy_parameters,omitempty" koanf:"privacy_parameters"`

	// PrivacySchedule is an alternative way to fill in
	// PrivacyParameters: a geometric doubling schedule summing to
	// Total (supplemented feature, grounded on
	// original_source/main.py).
	PrivacySchedule *PrivacySchedule `yaml:"privacy_schedule,omitempty" koanf:"privacy_schedule"`

	// Mechanism is "discrete_gaussian" or "discrete_laplace".
	Mechanism string `yaml:"mechanism" koanf:"mechanism" validate:"required,oneof=discrete_gaussian discrete_laplace"`

	// GeoConstraints maps a geography column name to the edit
	// constraints applied to every node at that level.
	GeoConstraints map[string][]ConstraintSpec `yaml:"geo_constraints,omitempty" koanf:"geo_constraints" validate:"dive,dive"`

	// RootConstraints are the edit constraints applied to the
	// root node.
	RootConstraints []ConstraintSpec `yaml:"root_constraints,omitempty" koanf:"root_constraints" validate:"dive"`

	// DistanceMetric selects the out-of-core diagnostic used by
	// package compare; when empty, the compare command uses tvd.
	DistanceMetric string `yaml:"distance_metric,omitempty" koanf:"distance_metric" validate:"omitempty,oneof=manhattan euclidean tvd cosine"`

	// InputPath is the raw microdata file read by the run and resume
	// commands.
	InputPath string `yaml:"input_path" koanf:"input_path" validate:"required"`

	// OutputPath is the synthetic microdata file written by
	// microdata.Emit.
	OutputPath string `yaml:"output_path" koanf:"output_path" validate:"required"`

	// Separator is the field delimiter used for InputPath and
	// OutputPath, one character, default tab.
	Separator string `yaml:"separator,omitempty" koanf:"separator"`

	// ProcessedDataPath is the partial-depth microdata file a
	// resumed run rebuilds its tree from.
	ProcessedDataPath string `yaml:"processed_data_path,omitempty" koanf:"processed_data_path"`

	// DiagnosticsPath is the directory the run and resume commands
	// write their workspace.tab and run.tab manifests to (empty means
	// OutputPath's directory). No solver model dump is written for an
	// infeasible node.
	DiagnosticsPath string `yaml:"diagnostics_path,omitempty" koanf:"diagnostics_path"`

	// Logging configures the process-wide slog handler.
	Logging LoggingConfig `yaml:"logging,omitempty" koanf:"logging"`
}

// LoggingConfig configures package logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" koanf:"format" validate:"omitempty,oneof=json text"`
}

// PrivacySchedule fills PrivacyParameters as a geometric doubling
// schedule: level i gets (Total/aux)*2^i, where aux = sum(2^i) over
// the levels actually processed (original_source/main.py).
type PrivacySchedule struct {
	Total float64 `yaml:"total" koanf:"total" validate:"gt=0"`
}

// ConstraintSpec is the serializable form of a geotree.Template.
type ConstraintSpec struct {
	Kind string    `yaml:"kind" koanf:"kind" validate:"required,oneof=sum_equals linear_equals linear_leq"`
	A    []float64 `yaml:"a,omitempty" koanf:"a"`
	B    float64   `yaml:"b,omitempty" koanf:"b"`
}

// ToTemplate converts a ConstraintSpec to a geotree.Template.
func (s ConstraintSpec) ToTemplate() (geotree.Template, error) {
	switch s.Kind {
	case "sum_equals":
		return geotree.Template{Kind: geotree.SumEquals}, nil
	case "linear_equals":
		return geotree.Template{Kind: geotree.LinearEquals, A: s.A, B: s.B}, nil
	case "linear_leq":
		return geotree.Template{Kind: geotree.LinearLeq, A: s.A, B: s.B}, nil
	default:
		return geotree.Template{}, fmt.Errorf("%w: unknown constraint kind %q", topdownerr.ErrConfig, s.Kind)
	}
}

// Depth returns the number of geography levels actually processed:
// len(GeoColumns), truncated at ProcessUntil inclusive, if set.
func (c *Config) Depth() int {
	if c.ProcessUntil == "" {
		return len(c.GeoColumns)
	}
	for i, col := range c.GeoColumns {
		if col == c.ProcessUntil {
			return i + 1
		}
	}
	return len(c.GeoColumns)
}

// separatorRune returns the configured field separator, defaulting
// to tab.
func (c *Config) separatorRune() rune {
	if c.Separator == "" {
		return '\t'
	}
	return rune(c.Separator[0])
}

// SeparatorRune is the public accessor for the configured field
// delimiter (rune), used by every package that opens InputPath,
// OutputPath or ProcessedDataPath.
func (c *Config) SeparatorRune() rune {
	return c.separatorRune()
}

// expandSchedule fills PrivacyParameters from PrivacySchedule, if the
// caller did not spell out PrivacyParameters directly.
func (c *Config) expandSchedule() {
	if len(c.PrivacyParameters) > 0 || c.PrivacySchedule == nil {
		return
	}
	levels := c.Depth() + 1
	var aux float64
	pow := make([]float64, levels)
	for i := range pow {
		pow[i] = pow2(i)
		aux += pow[i]
	}
	params := make([]float64, levels)
	for i := range params {
		params[i] = (c.PrivacySchedule.Total / aux) * pow[i]
	}
	c.PrivacyParameters = params
}

func pow2(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}
