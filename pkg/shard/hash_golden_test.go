// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These vectors pin StatsrelayCompatHash's output so a future refactor of
// the fold can't silently reshuffle every existing ring.
func TestStatsrelayCompatHash_Golden(t *testing.T) {
	cases := []struct {
		name string
		want uint32
	}{
		{"", 2166136261},
		{"foo.bar", 0xcb942ef4},
		{"a", 0xe40c292c},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatsrelayCompatHash([]byte(c.name)), "name=%q", c.name)
	}
}

func TestStatsrelayCompatHash_Deterministic(t *testing.T) {
	a := StatsrelayCompatHash([]byte("some.metric.name"))
	b := StatsrelayCompatHash([]byte("some.metric.name"))
	assert.Equal(t, a, b)
}

func TestStatsrelayCompatHash_Distinct(t *testing.T) {
	a := StatsrelayCompatHash([]byte("metric.one"))
	b := StatsrelayCompatHash([]byte("metric.two"))
	assert.NotEqual(t, a, b)
}
