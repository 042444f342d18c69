// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package listener implements the UDP/TCP/Unix statsd ingress acceptors
// (spec.md §5): one blocking receive loop for UDP, one accept loop plus
// one goroutine per connection for TCP/Unix.
package listener

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

const (
	tcpIdleTimeout = 62 * time.Second
	udpReadTimeout = time.Second
)

// Dispatcher is the subset of internal/backends.Registry a server needs.
// Declared locally, as internal/processors does, so this package stays
// free of a direct dependency on backends.
type Dispatcher interface {
	Dispatch(event statsdproto.Event, route []config.Route)
}

// Server accepts statsd traffic for one configured ingress and forwards
// each parsed line into Dispatcher along the server's route.
type Server struct {
	name     string
	cfg      config.ServerConfig
	dispatch Dispatcher

	received    scope.Counter
	parseErrors scope.Counter
}

func New(sc scope.Scope, name string, cfg config.ServerConfig, dispatch Dispatcher) *Server {
	s := sc.Scope(name)
	return &Server{
		name:        name,
		cfg:         cfg,
		dispatch:    dispatch,
		received:    s.Counter("lines_received"),
		parseErrors: s.Counter("parse_errors"),
	}
}

// Serve blocks until ctx is cancelled or the listener hits a fatal
// setup error. It picks UDP, TCP or Unix based on cfg.Socket/cfg.Bind.
func (s *Server) Serve(ctx context.Context) error {
	if s.cfg.Socket != "" {
		return s.serveStream(ctx, "unix", s.cfg.Socket)
	}
	network, addr, err := parseBind(s.cfg.Bind)
	if err != nil {
		return err
	}
	if network == "udp" {
		return s.serveUDP(ctx, addr)
	}
	return s.serveStream(ctx, network, addr)
}

func parseBind(bind string) (network, addr string, err error) {
	switch {
	case strings.HasPrefix(bind, "udp://"):
		return "udp", strings.TrimPrefix(bind, "udp://"), nil
	case strings.HasPrefix(bind, "tcp://"):
		return "tcp", strings.TrimPrefix(bind, "tcp://"), nil
	default:
		return "", "", fmt.Errorf("listener: bind %q must start with udp:// or tcp://", bind)
	}
}

func (s *Server) serveUDP(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		pc.SetReadDeadline(time.Now().Add(udpReadTimeout))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			cclog.Warnf("listener %s: udp read: %s", s.name, err.Error())
			continue
		}
		for _, line := range bytes.Split(buf[:n], []byte("\n")) {
			s.ingest(bytes.TrimSuffix(line, []byte("\r")))
		}
	}
}

func (s *Server) serveStream(ctx context.Context, network, addr string) error {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cclog.Warnf("listener %s: accept: %s", s.name, err.Error())
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(tcpIdleTimeout))
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			s.ingest(bytes.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// ingest parses one line and forwards it along the server's route. A
// bare "status" line is a health probe and is consumed silently
// (spec.md §6); anything that fails to parse is dropped and counted.
func (s *Server) ingest(line []byte) {
	if len(line) == 0 {
		return
	}
	if string(line) == "status" {
		return
	}
	s.received.Inc()
	p, err := statsdproto.ParsePdu(line)
	if err != nil {
		s.parseErrors.Inc()
		return
	}
	s.dispatch.Dispatch(statsdproto.EventFromPdu(p), s.cfg.Route)
}
