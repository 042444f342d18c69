// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cuckoo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_InsertThenContains(t *testing.T) {
	f := New(1024)
	key := []byte("foo.bar.baz")
	assert.False(t, f.Contains(key))
	assert.True(t, f.Insert(key))
	assert.True(t, f.Contains(key))
	assert.Equal(t, 1, f.Len())
}

func TestFilter_DistinctKeysDoNotCollideAway(t *testing.T) {
	f := New(256)
	keys := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		keys = append(keys, []byte(fmt.Sprintf("metric.%d", i)))
	}
	var succeeded [][]byte
	for _, k := range keys {
		if f.Insert(k) {
			succeeded = append(succeeded, k)
		}
	}
	// A 256-capacity filter (64 buckets * 4 slots) should hold 200 items
	// without much trouble at normal cuckoo load factors.
	assert.Greater(t, len(succeeded), 190)
	for _, k := range succeeded {
		assert.True(t, f.Contains(k))
	}
}

func TestFilter_ContainsOnEmpty(t *testing.T) {
	f := New(16)
	assert.False(t, f.Contains([]byte("never.inserted")))
}
