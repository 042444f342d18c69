// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shard

// Ring selects one of a fixed set of targets for a metric name by hashing
// the name and reducing modulo the target count. It carries no state
// beyond the target slice, so building a new Ring on every config reload
// is cheap; callers that want client reuse across reloads key their own
// memoization off the target's address (see internal/backends).
type Ring[T any] struct {
	targets []T
}

// NewRing builds a Ring over targets in the given order. Order matters:
// reordering targets between reloads redistributes every key, so callers
// must keep target order stable across reloads whenever possible.
func NewRing[T any](targets []T) *Ring[T] {
	cp := make([]T, len(targets))
	copy(cp, targets)
	return &Ring[T]{targets: cp}
}

// Len reports the number of targets in the ring.
func (r *Ring[T]) Len() int { return len(r.targets) }

// Pick returns the target selected for name, and false if the ring is
// empty.
func (r *Ring[T]) Pick(name []byte) (T, bool) {
	var zero T
	if len(r.targets) == 0 {
		return zero, false
	}
	h := StatsrelayCompatHash(name)
	return r.targets[int(h)%len(r.targets)], true
}

// Targets returns the underlying slice. Callers must not mutate it.
func (r *Ring[T]) Targets() []T { return r.targets }
