// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package processors implements the pipeline stages that sit between
// ingress and the sharded dispatch layer: tag normalization, cardinality
// guarding, sampling/aggregation and regex filtering (spec.md §4.4).
package processors

import (
	"time"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// Dispatcher is the subset of internal/backends.Registry a processor
// needs to re-inject events during tick. Declared here rather than
// imported to keep processors free of a dependency on backends (which
// itself holds a map of Processor).
type Dispatcher interface {
	Dispatch(event statsdproto.Event, route []config.Route)
}

// Output is returned by Processor.ProvideStatsd to tell the router what
// to do next. A nil Output means "stop this branch". NewEvents, when
// non-nil, replaces the original event for each downstream hop in
// Route; a nil NewEvents with a non-empty Route means "forward the
// original event unchanged".
type Output struct {
	NewEvents []statsdproto.Event
	Route     []config.Route
}

// Processor is one named pipeline stage.
type Processor interface {
	// ProvideStatsd handles one event on the hot dispatch path. It must
	// never block indefinitely: the registry's read lock is held for
	// the whole route walk (spec.md §5).
	ProvideStatsd(event statsdproto.Event) *Output

	// Tick runs the processor's periodic housekeeping (flush, filter
	// aging). now is passed explicitly so tests can drive it without a
	// real clock. Processors that need no periodic work may embed
	// NoTick to satisfy this trivially.
	Tick(now time.Time, dispatch Dispatcher)
}

// NoTick is embedded by processors with no periodic behavior.
type NoTick struct{}

func (NoTick) Tick(time.Time, Dispatcher) {}
