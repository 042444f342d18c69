// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Load reads, schema-validates and route-validates the config file at
// path. It never returns a partially valid Config: any failure returns
// a non-nil error with no usable zero value beyond what's already been
// surfaced.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	sch, err := jsonschema.CompileString("statsrelay-config.json", jsonSchema)
	if err != nil {
		return nil, fmt.Errorf("config: schema did not compile: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("config: %s is not valid JSON: %w", path, err)
	}
	if err := sch.Validate(instance); err != nil {
		return nil, fmt.Errorf("config: schema validation of %s failed: %w", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := CheckRoutes(&cfg); err != nil {
		return nil, err
	}
	if err := CheckNoCycles(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
