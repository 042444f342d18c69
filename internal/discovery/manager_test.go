// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
)

type recordedCall struct {
	source string
	update Update
}

func TestManager_PollsStaticFileOnceUpFront(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sources": ["a:1"]}`), 0o644))

	var mu sync.Mutex
	var calls []recordedCall

	sc := scope.NewCollector().Scope("test")
	m, err := New(sc, map[string]config.DiscoverySourceConfig{
		"file": {Type: "static_file", Path: path, PollIntervalSeconds: 3600},
	}, func(name string, u Update) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, recordedCall{name, u})
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	assert.Equal(t, "file", calls[0].source)
	assert.Equal(t, []string{"a:1"}, calls[0].update.Sources)
}

func TestManager_PollNowSkipsCallbackWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sources": ["a:1"]}`), 0o644))

	var mu sync.Mutex
	calls := 0

	sc := scope.NewCollector().Scope("test")
	m, err := New(sc, map[string]config.DiscoverySourceConfig{
		"file": {Type: "static_file", Path: path, PollIntervalSeconds: 3600},
	}, func(name string, u Update) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	m.PollNow()
	m.PollNow()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "re-polling unchanged content must not re-invoke the callback")
}

func TestManager_PollNowPicksUpFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sources": ["a:1"]}`), 0o644))

	var mu sync.Mutex
	var last Update

	sc := scope.NewCollector().Scope("test")
	m, err := New(sc, map[string]config.DiscoverySourceConfig{
		"file": {Type: "static_file", Path: path, PollIntervalSeconds: 3600},
	}, func(name string, u Update) {
		mu.Lock()
		defer mu.Unlock()
		last = u
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	require.NoError(t, os.WriteFile(path, []byte(`{"sources": ["a:1", "b:2"]}`), 0o644))
	m.PollNow()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a:1", "b:2"}, last.Sources)
}

func TestManager_UnknownSourceTypeFailsConstruction(t *testing.T) {
	sc := scope.NewCollector().Scope("test")
	_, err := New(sc, map[string]config.DiscoverySourceConfig{
		"bad": {Type: "carrier-pigeon"},
	}, func(string, Update) {})
	assert.Error(t, err)
}
