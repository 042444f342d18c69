// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
)

// Callback is invoked once per named source whenever its Update
// changes from the previously observed value.
type Callback func(sourceName string, update Update)

// Manager owns every configured discovery source: static_file/s3
// sources are polled on a gocron schedule, nats sources push updates
// as messages arrive. A DiscoveryError (failed poll, bad message) is
// logged and the previous Update is kept, per spec.md §7.
type Manager struct {
	scheduler gocron.Scheduler
	callback  Callback

	mu   sync.Mutex
	last map[string]Update

	pollers map[string]pollSource
	nats    []*natsSource

	pollErrors scope.Counter
}

// New builds a Manager for the given named sources and starts polling
// / subscribing immediately. callback is invoked synchronously from
// whichever goroutine observed the change (a gocron job or a NATS
// subscription callback); it must not block.
func New(sc scope.Scope, sources map[string]config.DiscoverySourceConfig, callback Callback) (*Manager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("discovery: build scheduler: %w", err)
	}

	m := &Manager{
		scheduler:  scheduler,
		callback:   callback,
		last:       make(map[string]Update),
		pollers:    make(map[string]pollSource),
		pollErrors: sc.Scope("discovery").Counter("poll_errors"),
	}

	for name, cfg := range sources {
		switch cfg.Type {
		case "static_file", "s3":
			src, err := newPollSource(cfg)
			if err != nil {
				return nil, err
			}
			m.pollers[name] = src
			interval := time.Duration(pollInterval(cfg)) * time.Second
			sourceName, source := name, src
			if _, err := scheduler.NewJob(
				gocron.DurationJob(interval),
				gocron.NewTask(func() { m.pollOnce(sourceName, source) }),
			); err != nil {
				return nil, fmt.Errorf("discovery: schedule source %q: %w", name, err)
			}
		case "nats":
			sourceName := name
			ns, err := newNatsSource(cfg, func(u Update) { m.handleUpdate(sourceName, u) })
			if err != nil {
				return nil, err
			}
			m.nats = append(m.nats, ns)
		default:
			return nil, fmt.Errorf("discovery: source %q: unknown type %q", name, cfg.Type)
		}
	}

	scheduler.Start()
	// Poll once up front so a poll-based source's shard map is available
	// immediately rather than only after its first interval elapses.
	for name, src := range m.pollers {
		m.pollOnce(name, src)
	}
	return m, nil
}

func (m *Manager) pollOnce(name string, src pollSource) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, err := src.Poll(ctx)
	if err != nil {
		m.pollErrors.Inc()
		cclog.Warnf("discovery: poll %q: %s", name, err.Error())
		return
	}
	m.handleUpdate(name, u)
}

func (m *Manager) handleUpdate(name string, u Update) {
	m.mu.Lock()
	if prev, ok := m.last[name]; ok && prev.Equal(u) {
		m.mu.Unlock()
		return
	}
	m.last[name] = u
	m.mu.Unlock()
	m.callback(name, u)
}

// PollNow re-polls every poll-based source immediately, for SIGHUP
// handling (spec.md §6, "SIGHUP reload config + re-poll discovery").
func (m *Manager) PollNow() {
	for name, src := range m.pollers {
		m.pollOnce(name, src)
	}
}

// Stop tears down NATS subscriptions and the poll scheduler.
func (m *Manager) Stop(ctx context.Context) {
	for _, ns := range m.nats {
		ns.Close()
	}
	done := make(chan error, 1)
	go func() { done <- m.scheduler.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			cclog.Warnf("discovery: scheduler shutdown: %s", err.Error())
		}
	case <-ctx.Done():
		cclog.Warnf("discovery: scheduler shutdown timed out")
	}
}
