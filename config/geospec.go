// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/js-arias/topdown/geotree"
)

// ToGeoSpec converts a Config's geography columns and edit-constraint
// specs into a geotree.GeoSpec, resolving every ConstraintSpec to its
// geotree.Template form.
func ToGeoSpec(c *Config) geotree.GeoSpec {
	geo := geotree.GeoSpec{
		Columns: c.GeoColumns[:c.Depth()],
	}
	if len(c.RootConstraints) > 0 {
		geo.Root = mustTemplates(c.RootConstraints)
	}
	if len(c.GeoConstraints) > 0 {
		geo.Constraints = make(map[string][]geotree.Template, len(c.GeoConstraints))
		for col, specs := range c.GeoConstraints {
			geo.Constraints[col] = mustTemplates(specs)
		}
	}
	return geo
}

// mustTemplates converts every spec to a Template, panicking on an
// unknown Kind. This is safe to call only after Load has already
// validated every ConstraintSpec's Kind through the validator "oneof"
// tag; it is not exported for that reason.
func mustTemplates(specs []ConstraintSpec) []geotree.Template {
	out := make([]geotree.Template, len(specs))
	for i, s := range specs {
		t, err := s.ToTemplate()
		if err != nil {
			panic(fmt.Sprintf("config: %v (should have been caught by Load)", err))
		}
		out[i] = t
	}
	return out
}
