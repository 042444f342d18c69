// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scope is a process-local hierarchical counter/gauge registry
// backed by github.com/prometheus/client_golang, exposed to the outside
// world as Prometheus text exposition by internal/admin.
package scope

import (
	"bytes"
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const sep = ":"

// Collector owns the Prometheus registry and the name -> metric maps
// that make registration idempotent: asking for the same name twice
// returns the same underlying counter or gauge.
type Collector struct {
	registry *prometheus.Registry

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

// Scope returns a named child scope rooted at prefix.
func (c *Collector) Scope(prefix string) Scope {
	return Scope{collector: c, scope: prefix}
}

// Registry returns the underlying Prometheus registry, for wiring into
// an HTTP handler (internal/admin).
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// PrometheusText renders the current registry contents as Prometheus
// text exposition format.
func (c *Collector) PrometheusText() ([]byte, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// sanitizeMetricName replaces bytes Prometheus metric names can't carry
// (anything outside [a-zA-Z0-9_:]) with '_'. Scope names are built from
// arbitrary config-supplied strings (backend names, processor names),
// which are otherwise unconstrained.
func sanitizeMetricName(name string) string {
	out := []byte(name)
	for i, b := range out {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_', b == ':':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func (c *Collector) registerCounter(name string) prometheus.Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok := c.counters[name]; ok {
		return ctr
	}
	ctr := prometheus.NewCounter(prometheus.CounterOpts{Name: sanitizeMetricName(name), Help: "a counter"})
	c.registry.MustRegister(ctr)
	c.counters[name] = ctr
	return ctr
}

func (c *Collector) registerGauge(name string) prometheus.Gauge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: sanitizeMetricName(name), Help: "a gauge"})
	c.registry.MustRegister(g)
	c.gauges[name] = g
	return g
}

// Scope is a cheap, cloneable handle into a Collector's namespace. Two
// Scopes built from the same prefix chain always resolve to the same
// underlying counters and gauges.
type Scope struct {
	collector *Collector
	scope     string
}

// Scope returns a grandchild scope, its name prefixed by this scope's.
func (s Scope) Scope(extend string) Scope {
	return Scope{collector: s.collector, scope: s.scope + sep + extend}
}

// Counter returns the monotone counter named name within this scope,
// creating it on first use.
func (s Scope) Counter(name string) Counter {
	return Counter{s.collector.registerCounter(s.scope + sep + name)}
}

// Gauge returns the gauge named name within this scope, creating it on
// first use.
func (s Scope) Gauge(name string) Gauge {
	return Gauge{s.collector.registerGauge(s.scope + sep + name)}
}

type Counter struct{ c prometheus.Counter }

func (c Counter) Inc()              { c.c.Inc() }
func (c Counter) Add(delta float64) { c.c.Add(delta) }

// Get reads back the current value via the Prometheus wire
// representation; there is no direct read accessor on prometheus.Counter.
func (c Counter) Get() float64 {
	var m dto.Metric
	_ = c.c.Write(&m)
	return m.GetCounter().GetValue()
}

type Gauge struct{ g prometheus.Gauge }

func (g Gauge) Set(value float64) { g.g.Set(value) }
func (g Gauge) Get() float64 {
	var m dto.Metric
	_ = g.g.Write(&m)
	return m.GetGauge().GetValue()
}
