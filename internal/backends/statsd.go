// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backends holds the hot-swappable registry of statsd backends
// and processors, and the router that walks a Route[] for one event
// (spec.md §4.3).
package backends

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/endpoint"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/shard"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// StatsdBackend shards events across a ring of sinks, after an optional
// name filter and an optional prefix/suffix rewrite. Type selects how
// each event is framed before it reaches the ring: "statsd" (default)
// and "influx" both shard across endpoint.Client sockets, "nats" shards
// across natsSink subject publishes instead (see EffectiveType).
type StatsdBackend struct {
	backendType string
	prefix      []byte
	suffix      []byte

	inputFilter []*regexp.Regexp

	influxPrecision lineprotocol.Precision

	ring *shard.Ring[sink]

	sends    scope.Counter
	fails    scope.Counter
	warnings atomic.Uint64
}

// NewStatsdBackend builds a backend from its config and the currently
// resolved endpoint addresses (static shard_map or the latest discovery
// Update). previous, if non-nil, donates its live clients so unchanged
// endpoints keep their queue contents and open connections across a
// reload (spec.md §4.2 "Client reuse across reloads").
func NewStatsdBackend(sc scope.Scope, cfg config.BackendConfig, previous *StatsdBackend, endpoints []string) (*StatsdBackend, error) {
	var patterns []string
	if cfg.InputBlocklist != "" {
		patterns = append(patterns, cfg.InputBlocklist)
	}
	if cfg.InputFilter != "" {
		patterns = append(patterns, cfg.InputFilter)
	}
	var filters []*regexp.Regexp
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("backends: bad input filter pattern %q: %w", pat, err)
		}
		filters = append(filters, re)
	}

	backendType := cfg.EffectiveType()

	memoize := make(map[string]sink)
	if previous != nil {
		memoize = previous.sinks()
	}

	clientScope := sc.Scope("statsd_client")
	capacity := cfg.EffectiveMaxQueue()
	var sinks []sink
	for _, addr := range endpoints {
		if addr == "" {
			continue
		}
		if s, ok := memoize[addr]; ok {
			sinks = append(sinks, s)
			continue
		}
		s, err := newSink(clientScope, backendType, addr, cfg.NatsSubject, capacity)
		if err != nil {
			return nil, fmt.Errorf("backends: endpoint %q: %w", addr, err)
		}
		memoize[addr] = s
		sinks = append(sinks, s)
	}

	return &StatsdBackend{
		backendType:     backendType,
		prefix:          []byte(cfg.Prefix),
		suffix:          []byte(cfg.Suffix),
		inputFilter:     filters,
		influxPrecision: influxPrecision(cfg.InfluxPrecision),
		ring:            shard.NewRing(sinks),
		sends:           sc.Counter("backend_sends"),
		fails:           sc.Counter("backend_fails"),
	}, nil
}

// newSink builds the sink a backend of backendType uses for one
// endpoint: a UDP endpoint.Client for "statsd"/"influx", a natsSink
// (endpoint is the NATS server URL, subject the publish subject) for
// "nats".
func newSink(sc scope.Scope, backendType, addr, subject string, capacity int) (sink, error) {
	if backendType == "nats" {
		return newNatsSink(addr, subject)
	}
	return endpoint.New(sc, "udp", addr, capacity), nil
}

// sinks captures the ring's current sinks keyed by endpoint address, for
// donation to the next reload's NewStatsdBackend.
func (b *StatsdBackend) sinks() map[string]sink {
	out := make(map[string]sink, b.ring.Len())
	for _, s := range b.ring.Targets() {
		out[s.Endpoint()] = s
	}
	return out
}

// Close tears down every client still owned by this backend's ring. It
// must only be called once the ring is no longer referenced (i.e. after
// both this backend and any reload's memoization map have been
// dropped), since clients are shared across reloads.
func (b *StatsdBackend) Close() {
	for _, s := range b.ring.Targets() {
		s.Close()
	}
}

// ProvideStatsd applies the input filter, shard-selects a sink, frames
// the event per backendType and forwards it.
func (b *StatsdBackend) ProvideStatsd(event statsdproto.Event) {
	name := event.Name()

	if len(b.inputFilter) > 0 && !anyMatch(b.inputFilter, name) {
		return
	}

	s, ok := b.ring.Pick(name)
	if !ok {
		return
	}

	var payload []byte
	if b.backendType == "influx" {
		encoded, err := encodeInflux(event, b.influxPrecision, time.Now())
		if err != nil {
			cclog.Warnf("backend: influx encode %q: %s", name, err.Error())
			return
		}
		payload = encoded
	} else {
		out := event.AsPdu()
		if len(b.prefix) > 0 || len(b.suffix) > 0 {
			out = out.WithPrefixSuffix(b.prefix, b.suffix)
		}
		payload = framed(out)
	}

	if s.TrySend(payload) {
		b.sends.Inc()
	} else {
		b.fails.Inc()
		if n := b.warnings.Add(1); n%1000 == 1 {
			cclog.Warnf("backend: dropping metric %q, endpoint %s queue full (total failures %d)", name, s.Endpoint(), n)
		}
	}
}

// framed copies a Pdu's wire bytes into a fresh \n-terminated buffer.
// It must not grow the Pdu's own slice in place: that buffer may still
// be shared with sibling fan-out targets (spec.md §4.1 "A Pdu ... is
// cloned per fan-out").
func framed(pdu *statsdproto.Pdu) []byte {
	b := pdu.Bytes()
	out := make([]byte, len(b)+1)
	copy(out, b)
	out[len(b)] = '\n'
	return out
}

func anyMatch(patterns []*regexp.Regexp, name []byte) bool {
	for _, re := range patterns {
		if re.Match(name) {
			return true
		}
	}
	return false
}
