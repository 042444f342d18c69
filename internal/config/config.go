// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the relay's JSON configuration: servers, backends,
// processors and discovery sources, plus the load-time validation that
// guarantees every route target resolves before the config is activated.
package config

import (
	"encoding/json"
	"fmt"
)

// RouteType is the kind of destination a Route names.
type RouteType string

const (
	RouteStatsd    RouteType = "statsd"
	RouteProcessor RouteType = "processor"
)

// Route is one hop in a processor or server's fan-out list: either a
// named statsd backend or a named processor.
type Route struct {
	Type   RouteType `json:"-"`
	Target string    `json:"-"`
}

// MarshalJSON re-encodes a Route to its wire form "kind:target".
func (r Route) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%s:%s", r.Type, r.Target))
}

// UnmarshalJSON parses "kind:target" route strings.
func (r *Route) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			kind := RouteType(raw[:i])
			if kind != RouteStatsd && kind != RouteProcessor {
				return fmt.Errorf("config: unknown route kind %q in %q", kind, raw)
			}
			r.Type = kind
			r.Target = raw[i+1:]
			return nil
		}
	}
	return fmt.Errorf("config: malformed route %q, expected \"kind:target\"", raw)
}

// ServerConfig describes one listening statsd ingress (UDP, TCP or Unix).
type ServerConfig struct {
	Bind   string  `json:"bind"`
	Socket string  `json:"socket,omitempty"`
	Route  []Route `json:"route"`
}

// BackendConfig is the spec's BackendConfig: the shard map for one named
// statsd-family backend, plus optional framing and filtering.
//
// Type selects the outbound framer: "statsd" (default) re-emits the
// statsd wire line, "influx" re-encodes as InfluxDB line protocol,
// "nats" publishes the statsd line to a NATS subject instead of opening
// a socket. All three place events through the same shard Ring; statsd
// and influx targets are endpoint Clients, nats targets publish directly.
type BackendConfig struct {
	Type            string   `json:"type,omitempty"`
	ShardMap        []string `json:"shard_map,omitempty"`
	ShardMapSource  string   `json:"shard_map_source,omitempty"`
	Prefix          string   `json:"prefix,omitempty"`
	Suffix          string   `json:"suffix,omitempty"`
	InputFilter     string   `json:"input_filter,omitempty"`
	InputBlocklist  string   `json:"input_blocklist,omitempty"`
	MaxQueue        int      `json:"max_queue,omitempty"`
	NatsSubject     string   `json:"nats_subject,omitempty"`
	InfluxPrecision string   `json:"influx_precision,omitempty"`
}

const DefaultMaxQueue = 100000

// EffectiveMaxQueue returns MaxQueue or the spec default when unset.
func (c *BackendConfig) EffectiveMaxQueue() int {
	if c.MaxQueue <= 0 {
		return DefaultMaxQueue
	}
	return c.MaxQueue
}

// EffectiveType returns Type or "statsd" when unset.
func (c *BackendConfig) EffectiveType() string {
	if c.Type == "" {
		return "statsd"
	}
	return c.Type
}

// ProcessorConfig is one entry of the top-level "processors" map, tagged
// by Type. Only the fields relevant to Type are populated by the caller;
// the JSON schema checks field types only, not which fields go with which
// type.
type ProcessorConfig struct {
	Type  string  `json:"type"`
	Route []Route `json:"route"`

	// tag_converter: no extra fields.

	// sampler, and (Window only) cardinality
	Window             int `json:"window,omitempty"`
	TimerReservoirSize int `json:"timer_reservoir_size,omitempty"`

	// cardinality
	SizeLimit int `json:"size_limit,omitempty"`
	Buckets   int `json:"buckets,omitempty"`

	// regex_filter
	Allow  []string `json:"allow,omitempty"`
	Remove []string `json:"remove,omitempty"`
	Expr   string   `json:"expr,omitempty"`
}

const (
	ProcessorTagConverter = "tag_converter"
	ProcessorSampler      = "sampler"
	ProcessorCardinality  = "cardinality"
	ProcessorRegexFilter  = "regex_filter"
)

// DiscoverySourceConfig is one entry of "discovery.sources", tagged by
// Type: "static_file", "s3" or "nats" (the last an enrichment beyond
// spec.md §6).
type DiscoverySourceConfig struct {
	Type string `json:"type"`

	// static_file
	Path string `json:"path,omitempty"`

	// s3
	Bucket string `json:"bucket,omitempty"`
	Key    string `json:"key,omitempty"`
	Region string `json:"region,omitempty"`

	// nats
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`

	// static_file / s3 poll cadence, seconds. Ignored by nats, which is
	// push-driven.
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
}

// AdminConfig configures the out-of-core admin HTTP server.
type AdminConfig struct {
	Port uint16 `json:"port"`
}

// StatsdConfig is the "statsd" top-level key: ingress servers and
// dispatch backends.
type StatsdConfig struct {
	Servers  map[string]ServerConfig  `json:"servers"`
	Backends map[string]BackendConfig `json:"backends"`
}

// DiscoveryConfig is the "discovery" top-level key.
type DiscoveryConfig struct {
	Sources map[string]DiscoverySourceConfig `json:"sources"`
}

// Config is the top-level JSON document (spec.md §6).
type Config struct {
	Admin      *AdminConfig               `json:"admin,omitempty"`
	Statsd     StatsdConfig               `json:"statsd"`
	Processors map[string]ProcessorConfig `json:"processors,omitempty"`
	Discovery  *DiscoveryConfig           `json:"discovery,omitempty"`
}
