// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tick drives the registry's once-per-second Tick (spec.md
// §4.4, "tick(now, backends) — periodic, once per second").
package tick

import (
	"context"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"
)

// Driver owns the gocron scheduler running the 1Hz tick job.
type Driver struct {
	scheduler gocron.Scheduler
}

// Registry is the subset of backends.Registry the driver calls.
type Registry interface {
	Tick(now time.Time)
}

// New builds a Driver and immediately starts its scheduler; the first
// tick fires after one interval, matching a job queue rather than an
// immediate call (processors should tolerate a cold first second).
func New(reg Registry) (*Driver, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Second),
		gocron.NewTask(func() {
			reg.Tick(time.Now())
		}),
	)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return &Driver{scheduler: scheduler}, nil
}

// Stop shuts the scheduler down, blocking for any in-flight tick to
// finish (bounded by ctx).
func (d *Driver) Stop(ctx context.Context) {
	done := make(chan error, 1)
	go func() { done <- d.scheduler.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			cclog.Warnf("tick: scheduler shutdown: %s", err.Error())
		}
	case <-ctx.Done():
		cclog.Warnf("tick: scheduler shutdown timed out")
	}
}
