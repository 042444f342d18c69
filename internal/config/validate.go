// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"
	"sort"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateSchema checks instance against the embedded JSON Schema. It
// fails fatally, matching the teacher's startup-validation convention
// (config errors are never recoverable at boot).
func ValidateSchema(instance json.RawMessage) {
	sch, err := jsonschema.CompileString("statsrelay-config.json", jsonSchema)
	if err != nil {
		cclog.Fatalf("config: schema did not compile: %#v", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		cclog.Fatalf("config: not valid JSON: %s", err.Error())
	}

	if err := sch.Validate(v); err != nil {
		cclog.Fatalf("config: schema validation failed: %#v", err)
	}
}

// CheckRoutes verifies every Route.Target and every
// BackendConfig.ShardMapSource resolves within cfg, per spec.md §4.3's
// config validation contract. It does not mutate cfg.
func CheckRoutes(cfg *Config) error {
	backendNames := make(map[string]bool, len(cfg.Statsd.Backends))
	for name := range cfg.Statsd.Backends {
		backendNames[name] = true
	}
	processorNames := make(map[string]bool, len(cfg.Processors))
	for name := range cfg.Processors {
		processorNames[name] = true
	}
	discoveryNames := make(map[string]bool)
	if cfg.Discovery != nil {
		for name := range cfg.Discovery.Sources {
			discoveryNames[name] = true
		}
	}

	checkRoute := func(context string, r Route) error {
		switch r.Type {
		case RouteStatsd:
			if !backendNames[r.Target] {
				return fmt.Errorf("config: %s references unknown statsd backend %q", context, r.Target)
			}
		case RouteProcessor:
			if !processorNames[r.Target] {
				return fmt.Errorf("config: %s references unknown processor %q", context, r.Target)
			}
		default:
			return fmt.Errorf("config: %s has unrecognized route kind %q", context, r.Type)
		}
		return nil
	}

	for name, server := range cfg.Statsd.Servers {
		for _, r := range server.Route {
			if err := checkRoute(fmt.Sprintf("server %q", name), r); err != nil {
				return err
			}
		}
	}
	for name, backend := range cfg.Statsd.Backends {
		if backend.ShardMapSource != "" && !discoveryNames[backend.ShardMapSource] {
			return fmt.Errorf("config: backend %q references unknown discovery source %q", name, backend.ShardMapSource)
		}
	}
	for name, proc := range cfg.Processors {
		for _, r := range proc.Route {
			if err := checkRoute(fmt.Sprintf("processor %q", name), r); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckNoCycles rejects any processor whose route graph transitively
// reaches itself, the static half of the routing-cycle defense recorded
// as Open Question decision #1 (see DESIGN.md): the router's bounded
// recursion depth is the runtime backstop, this is the load-time one.
func CheckNoCycles(cfg *Config) error {
	// visiting tracks the current DFS stack; visited short-circuits
	// processors already proven cycle-free.
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("config: routing cycle detected: %v -> %s", path, name)
		}
		proc, ok := cfg.Processors[name]
		if !ok {
			return nil
		}
		visiting[name] = true
		for _, r := range proc.Route {
			if r.Type != RouteProcessor {
				continue
			}
			if err := visit(r.Target, append(path, name)); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		return nil
	}

	names := make([]string, 0, len(cfg.Processors))
	for name := range cfg.Processors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
