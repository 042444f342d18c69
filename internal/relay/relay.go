// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package relay wires config, backends, processors, discovery, tick and
// the listener/admin HTTP surfaces into one running process. It is the
// thing cmd/statsrelay starts and reloads on SIGHUP.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/theatrus/statsrelay/internal/admin"
	"github.com/theatrus/statsrelay/internal/backends"
	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/discovery"
	"github.com/theatrus/statsrelay/internal/listener"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/internal/processors/cardinality"
	"github.com/theatrus/statsrelay/internal/processors/regexfilter"
	"github.com/theatrus/statsrelay/internal/processors/sampler"
	"github.com/theatrus/statsrelay/internal/processors/tag"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/internal/tick"
)

// Relay owns every long-lived subsystem for one loaded configuration.
type Relay struct {
	cfgPath string

	collector *scope.Collector
	sc        scope.Scope
	registry  *backends.Registry
	tickDrv   *tick.Driver
	adminSrv  *admin.Server
	servers   []*listener.Server

	mu             sync.Mutex
	cfg            *config.Config
	discoveryMgr   *discovery.Manager
	discoveryCache map[string][]string
}

// New loads cfgPath and brings up every subsystem it describes. A
// non-nil error means nothing was left running: the caller should
// treat it as a fatal startup failure (spec.md §6, "non-zero on
// startup validation failure").
func New(cfgPath string) (*Relay, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	collector := scope.NewCollector()
	sc := collector.Scope("statsrelay")

	r := &Relay{
		cfgPath:        cfgPath,
		collector:      collector,
		sc:             sc,
		registry:       backends.NewRegistry(sc.Scope("backends")),
		discoveryCache: make(map[string][]string),
	}

	if cfg.Discovery != nil {
		mgr, err := discovery.New(sc.Scope("discovery"), cfg.Discovery.Sources, r.onDiscoveryUpdate)
		if err != nil {
			return nil, err
		}
		r.discoveryMgr = mgr
	}

	if err := r.applyConfig(nil, cfg); err != nil {
		if r.discoveryMgr != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.discoveryMgr.Stop(ctx)
			cancel()
		}
		return nil, err
	}
	r.cfg = cfg

	driver, err := tick.New(r.registry)
	if err != nil {
		return nil, err
	}
	r.tickDrv = driver

	if cfg.Admin != nil {
		r.adminSrv = admin.New(*cfg.Admin, collector)
	}
	for name, serverCfg := range cfg.Statsd.Servers {
		r.servers = append(r.servers, listener.New(sc.Scope("listener"), name, serverCfg, r.registry))
	}

	return r, nil
}

// onDiscoveryUpdate is the discovery.Callback: it caches the new
// endpoint list and rebuilds every statsd backend whose
// shard_map_source names this source.
func (r *Relay) onDiscoveryUpdate(name string, u discovery.Update) {
	r.mu.Lock()
	r.discoveryCache[name] = u.Sources
	cfg := r.cfg
	r.mu.Unlock()
	if cfg == nil {
		return
	}
	for beName, beCfg := range cfg.Statsd.Backends {
		if beCfg.ShardMapSource != name {
			continue
		}
		if err := r.registry.ReplaceStatsdBackend(beName, beCfg, u.Sources); err != nil {
			cclog.Warnf("relay: rebuilding backend %q from discovery %q: %s", beName, name, err.Error())
		}
	}
}

// applyConfig activates cfg's backends and processors, replacing
// anything already registered under the same name and removing
// anything present in previous but absent from cfg. previous is nil on
// first load.
func (r *Relay) applyConfig(previous, cfg *config.Config) error {
	for name, beCfg := range cfg.Statsd.Backends {
		endpoints := beCfg.ShardMap
		if beCfg.ShardMapSource != "" {
			r.mu.Lock()
			endpoints = r.discoveryCache[beCfg.ShardMapSource]
			r.mu.Unlock()
		}
		if err := r.registry.ReplaceStatsdBackend(name, beCfg, endpoints); err != nil {
			return fmt.Errorf("relay: backend %q: %w", name, err)
		}
	}
	if previous != nil {
		for name := range previous.Statsd.Backends {
			if _, ok := cfg.Statsd.Backends[name]; !ok {
				r.registry.RemoveStatsdBackend(name)
			}
		}
	}

	for name, pCfg := range cfg.Processors {
		proc, err := buildProcessor(r.sc.Scope("processors").Scope(name), pCfg)
		if err != nil {
			return fmt.Errorf("relay: processor %q: %w", name, err)
		}
		r.registry.ReplaceProcessor(name, proc)
	}
	if previous != nil {
		for name := range previous.Processors {
			if _, ok := cfg.Processors[name]; !ok {
				r.registry.RemoveProcessor(name)
			}
		}
	}
	return nil
}

func buildProcessor(sc scope.Scope, cfg config.ProcessorConfig) (processors.Processor, error) {
	switch cfg.Type {
	case config.ProcessorTagConverter:
		return tag.New(cfg.Route), nil
	case config.ProcessorSampler:
		return sampler.New(cfg, time.Now()), nil
	case config.ProcessorCardinality:
		return cardinality.New(sc, cfg, time.Now()), nil
	case config.ProcessorRegexFilter:
		return regexfilter.New(sc, cfg)
	default:
		return nil, fmt.Errorf("unknown processor type %q", cfg.Type)
	}
}

// Reload re-reads the config file, activates the new backends and
// processors, and re-points discovery at the new source set (spec.md
// §6, "SIGHUP reload config + re-poll discovery"). A failed reload
// leaves the previously active config running untouched.
func (r *Relay) Reload() error {
	newCfg, err := config.Load(r.cfgPath)
	if err != nil {
		return err
	}

	var newMgr *discovery.Manager
	if newCfg.Discovery != nil {
		newMgr, err = discovery.New(r.sc.Scope("discovery"), newCfg.Discovery.Sources, r.onDiscoveryUpdate)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	previous := r.cfg
	r.mu.Unlock()

	if err := r.applyConfig(previous, newCfg); err != nil {
		if newMgr != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			newMgr.Stop(ctx)
			cancel()
		}
		return err
	}

	r.mu.Lock()
	oldMgr := r.discoveryMgr
	r.discoveryMgr = newMgr
	r.cfg = newCfg
	r.mu.Unlock()

	if oldMgr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		oldMgr.Stop(ctx)
		cancel()
	}
	return nil
}

// Serve starts every ingress listener and the admin server, blocking
// until ctx is cancelled and all of them have returned.
func (r *Relay) Serve(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range r.servers {
		wg.Add(1)
		go func(s *listener.Server) {
			defer wg.Done()
			if err := s.Serve(ctx); err != nil {
				cclog.Warnf("relay: listener: %s", err.Error())
			}
		}(s)
	}
	if r.adminSrv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.adminSrv.Serve(ctx); err != nil {
				cclog.Warnf("relay: admin: %s", err.Error())
			}
		}()
	}
	wg.Wait()
}

// Stop tears down the tick scheduler and discovery sources. Call after
// Serve's ctx has been cancelled and Serve has returned.
func (r *Relay) Stop(ctx context.Context) {
	r.tickDrv.Stop(ctx)
	r.mu.Lock()
	mgr := r.discoveryMgr
	r.mu.Unlock()
	if mgr != nil {
		mgr.Stop(ctx)
	}
}

// Collector exposes the Prometheus registry backing every scope
// counter/gauge, for tests that want to assert on metric values.
func (r *Relay) Collector() *scope.Collector { return r.collector }

// Registry exposes the backend/processor registry, for tests.
func (r *Relay) Registry() *backends.Registry { return r.registry }
