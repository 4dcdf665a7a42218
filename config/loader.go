// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/js-arias/topdown/topdownerr"
)

// Load reads path as a YAML configuration file, layering
// TOPDOWN_-prefixed environment variables over it (double underscore
// becomes a nesting dot, e.g. TOPDOWN_LOGGING__LEVEL overrides
// logging.level), unmarshals the result into a Config, and validates
// it. Every failure here is a Configuration error (spec.md §7),
// fatal at initialization.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", topdownerr.ErrConfig, path, err)
	}

	err := k.Load(env.Provider("TOPDOWN_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "TOPDOWN_")
		s = strings.Replace(s, "__", ".", -1)
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: reading environment overrides: %v", topdownerr.ErrConfig, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling: %v", topdownerr.ErrConfig, err)
	}

	cfg.expandSchedule()

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", topdownerr.ErrConfig, err)
	}
	if err := cfg.validateSemantics(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateSemantics checks the rules a struct tag cannot express:
// privacy parameter count against the tree depth, and that every
// geography referenced by GeoConstraints is a declared GeoColumn.
func (c *Config) validateSemantics() error {
	want := c.Depth() + 1
	if len(c.PrivacyParameters) != want {
		return fmt.Errorf("%w: privacy_parameters has %d entries, want %d (depth+1)",
			topdownerr.ErrConfig, len(c.PrivacyParameters), want)
	}

	declared := make(map[string]bool, len(c.GeoColumns))
	for _, col := range c.GeoColumns {
		declared[col] = true
	}
	for col := range c.GeoConstraints {
		if !declared[col] {
			return fmt.Errorf("%w: geo_constraints references undeclared column %q", topdownerr.ErrConfig, col)
		}
	}
	return nil
}
