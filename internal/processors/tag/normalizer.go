// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tag implements the tag_converter processor: it folds external
// "#tags" into the metric name (spec.md §4.4.1).
package tag

import (
	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// Normalizer rewrites an event's external tags into inline name
// encoding and forwards the result down Route. It holds no state
// beyond its route, so Tick is a no-op.
type Normalizer struct {
	processors.NoTick
	Route []config.Route
}

func New(route []config.Route) *Normalizer {
	return &Normalizer{Route: route}
}

func (n *Normalizer) ProvideStatsd(event statsdproto.Event) *processors.Output {
	owned, err := event.AsOwned()
	if err != nil {
		return nil
	}
	out := statsdproto.ToInlineTags(owned)
	return &processors.Output{
		NewEvents: []statsdproto.Event{statsdproto.EventFromOwned(out)},
		Route:     n.Route,
	}
}
