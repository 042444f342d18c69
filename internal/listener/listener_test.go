// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

type recordingDispatcher struct {
	ch chan statsdproto.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{ch: make(chan statsdproto.Event, 32)}
}

func (d *recordingDispatcher) Dispatch(event statsdproto.Event, route []config.Route) {
	d.ch <- event
}

func freeUDPAddr(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	pc.Close()
	return addr
}

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestServer_UDP_ParsesLines(t *testing.T) {
	addr := freeUDPAddr(t)
	disp := newRecordingDispatcher()
	sc := scope.NewCollector().Scope("test")
	s := New(sc, "ingress", config.ServerConfig{Bind: "udp://" + addr}, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("foo.bar:3|c\nstatus\nbaz.qux:1|c\n"))
	require.NoError(t, err)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case ev := <-disp.ch:
			got = append(got, string(ev.Name()))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}
	assert.ElementsMatch(t, []string{"foo.bar", "baz.qux"}, got)

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_TCP_ParsesLines(t *testing.T) {
	addr := freeTCPAddr(t)
	disp := newRecordingDispatcher()
	sc := scope.NewCollector().Scope("test")
	s := New(sc, "ingress", config.ServerConfig{Bind: "tcp://" + addr}, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("foo.bar:3|c\r\n"))
	require.NoError(t, err)

	select {
	case ev := <-disp.ch:
		assert.Equal(t, "foo.bar", string(ev.Name()))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func TestParseBind_RejectsUnknownScheme(t *testing.T) {
	_, _, err := parseBind("foo://bar")
	assert.Error(t, err)
}

func TestParseBind_UDP(t *testing.T) {
	network, addr, err := parseBind("udp://127.0.0.1:8125")
	require.NoError(t, err)
	assert.Equal(t, "udp", network)
	assert.Equal(t, "127.0.0.1:8125", addr)
}
