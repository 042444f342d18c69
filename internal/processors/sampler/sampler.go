// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sampler implements the sampler processor: it aggregates
// counters, gauges and timers over a window and emits one reduced event
// per id on each flush (spec.md §4.4.3).
package sampler

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

const defaultReservoir = 100

// scale adjusts an ingested value for its sample rate. sampleRate == 0
// means "not present" and yields (value, 1), as does a rate outside
// (0, 1]. A rate r in (0, 1] stands for 1/r observations: the value is
// multiplied by 1/r and counts as 1/r samples, so value/sample_rate of
// the flushed event recovers the unsampled total.
func scale(value, sampleRate float64) (scaled, counts float64) {
	if sampleRate <= 0 || sampleRate > 1 {
		return value, 1
	}
	factor := 1 / sampleRate
	return value * factor, factor
}

type counterAgg struct {
	id      statsdproto.Id
	value   float64
	samples float64
}

func (c *counterAgg) toOwned() *statsdproto.Owned {
	return statsdproto.NewOwned(c.id, c.value/c.samples, 1/c.samples)
}

type gaugeAgg struct {
	id    statsdproto.Id
	value float64
}

func (g *gaugeAgg) toOwned() *statsdproto.Owned {
	return statsdproto.NewOwned(g.id, g.value, 0)
}

type timerAgg struct {
	id            statsdproto.Id
	values        []float64
	filledCount   int
	reservoirSize int
	count         float64
	sum           float64
}

func newTimerAgg(id statsdproto.Id, reservoirSize int) *timerAgg {
	return &timerAgg{
		id:            id,
		values:        make([]float64, 0, reservoirSize),
		reservoirSize: reservoirSize,
	}
}

func (t *timerAgg) add(value, sampleRate float64) {
	if len(t.values) < t.reservoirSize {
		t.values = append(t.values, value)
	} else if t.filledCount > 0 {
		if idx := int(rand.Uint64() % uint64(t.filledCount)); idx < t.reservoirSize {
			t.values[idx] = value
		}
	}
	sum, count := scale(value, sampleRate)
	t.count += count
	t.sum += sum
	t.filledCount++
}

// Sampler aggregates counters, gauges and timers across a window,
// flushing reduced events downstream on Tick. Counters and gauges key
// on Id.Key() to avoid rehashing the full Id on every lookup.
type Sampler struct {
	reservoirSize int
	window        time.Duration
	route         []config.Route

	mu       sync.Mutex
	counters map[string]*counterAgg
	gauges   map[string]*gaugeAgg
	timers   map[string]*timerAgg

	lastFlush time.Time
}

func New(cfg config.ProcessorConfig, now time.Time) *Sampler {
	reservoir := cfg.TimerReservoirSize
	if reservoir <= 0 {
		reservoir = defaultReservoir
	}
	return &Sampler{
		reservoirSize: reservoir,
		window:        time.Duration(cfg.Window) * time.Second,
		route:         cfg.Route,
		counters:      make(map[string]*counterAgg),
		gauges:        make(map[string]*gaugeAgg),
		timers:        make(map[string]*timerAgg),
		lastFlush:     now,
	}
}

func (s *Sampler) ProvideStatsd(event statsdproto.Event) *processors.Output {
	owned, err := event.AsOwned()
	if err != nil {
		return nil
	}

	switch owned.Id.Type {
	case statsdproto.Timer:
		s.recordTimer(owned)
		return nil
	case statsdproto.Counter:
		s.recordCounter(owned)
		return nil
	case statsdproto.Gauge, statsdproto.DirectGauge:
		s.recordGauge(owned)
		return nil
	default:
		// Sets and anything else pass through unaggregated.
		return &processors.Output{Route: s.route}
	}
}

func (s *Sampler) recordCounter(owned *statsdproto.Owned) {
	scaled, counts := scale(owned.Value, owned.SampleRate)
	key := owned.Id.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[key]; ok {
		c.value += scaled
		c.samples += counts
	} else {
		s.counters[key] = &counterAgg{id: owned.Id, value: scaled, samples: counts}
	}
}

func (s *Sampler) recordGauge(owned *statsdproto.Owned) {
	key := owned.Id.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gauges[key]; ok {
		g.value = owned.Value
	} else {
		s.gauges[key] = &gaugeAgg{id: owned.Id, value: owned.Value}
	}
}

func (s *Sampler) recordTimer(owned *statsdproto.Owned) {
	key := owned.Id.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		t = newTimerAgg(owned.Id, s.reservoirSize)
		s.timers[key] = t
	}
	t.add(owned.Value, owned.SampleRate)
}

// Tick flushes all aggregated state once window has elapsed since the
// last flush, dispatching one event per id for gauges and counters and
// one event per retained sample for timers.
func (s *Sampler) Tick(now time.Time, dispatch processors.Dispatcher) {
	s.mu.Lock()
	if now.Sub(s.lastFlush) < s.window {
		s.mu.Unlock()
		return
	}
	gauges := s.gauges
	counters := s.counters
	timers := s.timers
	s.gauges = make(map[string]*gaugeAgg)
	s.counters = make(map[string]*counterAgg)
	s.timers = make(map[string]*timerAgg)
	s.lastFlush = now
	s.mu.Unlock()

	for _, g := range gauges {
		dispatch.Dispatch(statsdproto.EventFromOwned(g.toOwned()), s.route)
	}
	for _, c := range counters {
		dispatch.Dispatch(statsdproto.EventFromOwned(c.toOwned()), s.route)
	}
	for _, t := range timers {
		sampleRate := float64(len(t.values)) / t.count
		for _, v := range t.values {
			owned := statsdproto.NewOwned(t.id, v, sampleRate)
			dispatch.Dispatch(statsdproto.EventFromOwned(owned), s.route)
		}
	}
}
