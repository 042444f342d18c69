// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backends

import (
	"sync"
	"time"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// maxRouteDepth bounds recursive route walks. Config validation already
// rejects any processor whose route graph transitively reaches itself
// (internal/config.CheckNoCycles), so this is belt-and-suspenders: it
// only fires if a route was activated without going through that check.
const maxRouteDepth = 16

// Registry is a hot-swappable, name-indexed container of statsd
// backends and processors. Both maps share one reader-writer lock:
// dispatch holds the read side for the whole route walk of one event,
// which is safe because config validation rejects routing cycles
// before a config is ever activated (see internal/config.CheckNoCycles
// and spec.md §4.3 "Cycles").
type Registry struct {
	scope scope.Scope

	mu         sync.RWMutex
	statsd     map[string]*StatsdBackend
	processors map[string]processors.Processor

	depthDropped  scope.Counter
	missingTarget scope.Counter
}

func NewRegistry(sc scope.Scope) *Registry {
	return &Registry{
		scope:         sc,
		statsd:        make(map[string]*StatsdBackend),
		processors:    make(map[string]processors.Processor),
		depthDropped:  sc.Counter("router_depth_dropped"),
		missingTarget: sc.Counter("router_dropped_missing_target"),
	}
}

// ReplaceStatsdBackend builds a new StatsdBackend for name from cfg and
// the resolved endpoint set, donating the outgoing backend's live
// clients so unchanged endpoints survive the swap.
func (r *Registry) ReplaceStatsdBackend(name string, cfg config.BackendConfig, endpoints []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.statsd[name]
	backend, err := NewStatsdBackend(r.scope.Scope(name), cfg, previous, endpoints)
	if err != nil {
		return err
	}
	r.statsd[name] = backend
	return nil
}

// RemoveStatsdBackend drops name from the registry. The backend's
// clients are not closed here: any reload that ran concurrently may
// have already donated them into a replacement backend's ring.
func (r *Registry) RemoveStatsdBackend(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statsd, name)
}

// ReplaceProcessor installs or replaces the named processor.
func (r *Registry) ReplaceProcessor(name string, p processors.Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[name] = p
}

// RemoveProcessor drops name from the registry.
func (r *Registry) RemoveProcessor(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processors, name)
}

// BackendNames lists the currently registered statsd backend names.
func (r *Registry) BackendNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.statsd))
	for name := range r.statsd {
		names = append(names, name)
	}
	return names
}

// Len reports the number of registered statsd backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.statsd)
}

// Dispatch walks route for event, holding the registry's read lock for
// the duration (spec.md §4.3 "Route walk").
func (r *Registry) Dispatch(event statsdproto.Event, route []config.Route) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.dispatchLocked(event, route, 0)
}

func (r *Registry) dispatchLocked(event statsdproto.Event, route []config.Route, depth int) {
	if depth >= maxRouteDepth {
		r.depthDropped.Inc()
		return
	}
	for _, dest := range route {
		switch dest.Type {
		case config.RouteStatsd:
			backend, ok := r.statsd[dest.Target]
			if !ok {
				r.missingTarget.Inc()
				continue
			}
			backend.ProvideStatsd(event)
		case config.RouteProcessor:
			proc, ok := r.processors[dest.Target]
			if !ok {
				r.missingTarget.Inc()
				continue
			}
			out := proc.ProvideStatsd(event)
			if out == nil {
				continue
			}
			if out.NewEvents != nil {
				for _, ne := range out.NewEvents {
					r.dispatchLocked(ne, out.Route, depth+1)
				}
			} else {
				r.dispatchLocked(event, out.Route, depth+1)
			}
		}
	}
}

// Tick runs every registered processor's periodic housekeeping, passing
// the registry itself as the Dispatcher processors re-inject events
// through.
func (r *Registry) Tick(now time.Time) {
	r.mu.RLock()
	procs := make([]processors.Processor, 0, len(r.processors))
	for _, p := range r.processors {
		procs = append(procs, p)
	}
	r.mu.RUnlock()

	for _, p := range procs {
		p.Tick(now, r)
	}
}
