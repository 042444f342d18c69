// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_JSONRoundTrip(t *testing.T) {
	r := Route{Type: RouteStatsd, Target: "primary"}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `"statsd:primary"`, string(b))

	var r2 Route
	require.NoError(t, json.Unmarshal(b, &r2))
	assert.Equal(t, r, r2)
}

func TestRoute_UnmarshalRejectsUnknownKind(t *testing.T) {
	var r Route
	err := json.Unmarshal([]byte(`"bogus:target"`), &r)
	assert.Error(t, err)
}

func TestRoute_UnmarshalRejectsMissingColon(t *testing.T) {
	var r Route
	err := json.Unmarshal([]byte(`"statsd"`), &r)
	assert.Error(t, err)
}

func TestBackendConfig_Defaults(t *testing.T) {
	c := BackendConfig{}
	assert.Equal(t, DefaultMaxQueue, c.EffectiveMaxQueue())
	assert.Equal(t, "statsd", c.EffectiveType())

	c2 := BackendConfig{MaxQueue: 42, Type: "influx"}
	assert.Equal(t, 42, c2.EffectiveMaxQueue())
	assert.Equal(t, "influx", c2.EffectiveType())
}

func validConfig() *Config {
	return &Config{
		Statsd: StatsdConfig{
			Servers: map[string]ServerConfig{
				"udp": {Bind: ":8125", Route: []Route{{Type: RouteStatsd, Target: "graphite"}}},
			},
			Backends: map[string]BackendConfig{
				"graphite": {ShardMap: []string{"127.0.0.1:2003"}},
			},
		},
		Processors: map[string]ProcessorConfig{
			"tag": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteStatsd, Target: "graphite"}}},
		},
	}
}

func TestCheckRoutes_Valid(t *testing.T) {
	assert.NoError(t, CheckRoutes(validConfig()))
}

func TestCheckRoutes_MissingBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Statsd.Servers["udp"] = ServerConfig{
		Bind:  ":8125",
		Route: []Route{{Type: RouteStatsd, Target: "nonexistent"}},
	}
	assert.Error(t, CheckRoutes(cfg))
}

func TestCheckRoutes_MissingProcessor(t *testing.T) {
	cfg := validConfig()
	cfg.Statsd.Servers["udp"] = ServerConfig{
		Bind:  ":8125",
		Route: []Route{{Type: RouteProcessor, Target: "nonexistent"}},
	}
	assert.Error(t, CheckRoutes(cfg))
}

func TestCheckRoutes_MissingDiscoverySource(t *testing.T) {
	cfg := validConfig()
	b := cfg.Statsd.Backends["graphite"]
	b.ShardMapSource = "missing"
	cfg.Statsd.Backends["graphite"] = b
	assert.Error(t, CheckRoutes(cfg))
}

func TestCheckNoCycles_Direct(t *testing.T) {
	cfg := &Config{
		Processors: map[string]ProcessorConfig{
			"a": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteProcessor, Target: "a"}}},
		},
	}
	assert.Error(t, CheckNoCycles(cfg))
}

func TestCheckNoCycles_Indirect(t *testing.T) {
	cfg := &Config{
		Processors: map[string]ProcessorConfig{
			"a": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteProcessor, Target: "b"}}},
			"b": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteProcessor, Target: "a"}}},
		},
	}
	assert.Error(t, CheckNoCycles(cfg))
}

func TestCheckNoCycles_Acyclic(t *testing.T) {
	cfg := &Config{
		Processors: map[string]ProcessorConfig{
			"a": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteProcessor, Target: "b"}}},
			"b": {Type: ProcessorTagConverter, Route: []Route{{Type: RouteStatsd, Target: "graphite"}}},
		},
	}
	assert.NoError(t, CheckNoCycles(cfg))
}

func TestValidateSchema_AcceptsMinimalConfig(t *testing.T) {
	defer func() {
		r := recover()
		assert.Nil(t, r, "ValidateSchema should cclog.Fatalf, not panic, on invalid input in production; this test only exercises the valid path")
	}()
	raw := json.RawMessage(`{
		"statsd": {
			"servers": {},
			"backends": {}
		}
	}`)
	ValidateSchema(raw)
}
