// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cardinality implements the cardinality processor: a sliding
// window membership guard that rejects newly-observed metric ids once
// the window is holding more than size_limit distinct ids (spec.md
// §4.4.2). Unlike the other processors here, this has no equivalent in
// original_source/src/processors/cardinality.rs, which is a no-op stub;
// the sliding-window MultiCuckoo design below is built directly from
// the specification text.
package cardinality

import (
	"sync"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

const defaultCapacityHint = 4096

// Guard is the cardinality processor.
type Guard struct {
	route     []config.Route
	sizeLimit int

	mu sync.Mutex
	mc *multiCuckoo

	admitted scope.Counter
	flagged  scope.Counter
	countHwm scope.Gauge

	rejectCount atomic.Uint64
}

// New builds a Guard from its processor config. Window is in seconds;
// Buckets is the number of rotation slots (spec.md §4.4.2's "buckets").
// now seeds the first generation of valid_until timestamps.
func New(sc scope.Scope, cfg config.ProcessorConfig, now time.Time) *Guard {
	buckets := cfg.Buckets
	if buckets <= 0 {
		buckets = 1
	}
	window := time.Duration(cfg.Window) * time.Second
	if window <= 0 {
		window = time.Second
	}
	capacity := cfg.SizeLimit * 2
	if capacity <= 0 {
		capacity = defaultCapacityHint
	}
	return &Guard{
		route:     cfg.Route,
		sizeLimit: cfg.SizeLimit,
		mc:        newMultiCuckoo(buckets, window, capacity, now),
		admitted:  sc.Counter("admitted"),
		flagged:   sc.Counter("flagged_metrics"),
		countHwm:  sc.Gauge("count_hwm"),
	}
}

func (g *Guard) ProvideStatsd(event statsdproto.Event) *processors.Output {
	owned, err := event.AsOwned()
	if err != nil {
		return nil
	}
	key := []byte(owned.Id.Key())

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mc.contains(key) {
		// Admit and refresh: reinsert into all filters so this id stays
		// current through the next rotation too.
		g.mc.insert(key)
	} else if g.sizeLimit > 0 && g.mc.size() > g.sizeLimit {
		g.flagged.Inc()
		if n := g.rejectCount.Add(1); n%1000 == 1 {
			cclog.Warnf("cardinality: rejecting metric %q, window size %d exceeds limit %d", owned.Id.Name, g.mc.size(), g.sizeLimit)
		}
		return nil
	} else {
		g.mc.insert(key)
	}

	if hwm := float64(g.mc.size()); hwm > g.countHwm.Get() {
		g.countHwm.Set(hwm)
	}
	g.admitted.Inc()
	return &processors.Output{Route: g.route}
}

func (g *Guard) Tick(now time.Time, _ processors.Dispatcher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mc.tick(now)
}
