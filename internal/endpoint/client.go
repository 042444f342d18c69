// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package endpoint implements the bounded outbound queue and background
// sender that front one downstream address, per spec.md §4.2.
package endpoint

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"golang.org/x/time/rate"

	"github.com/theatrus/statsrelay/internal/scope"
)

// backoff steps, capped at the last entry, per spec.md §4.2 and §5.
var backoffSteps = []time.Duration{
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
	5 * time.Second,
}

// Client owns a bounded queue of wire-ready payloads for one downstream
// address and the goroutine that drains it. Construction starts the
// sender goroutine; Close stops it.
type Client struct {
	endpoint string
	network  string // "udp" or "tcp"

	queue  chan []byte
	cancel context.CancelFunc
	done   chan struct{}

	sends    scope.Counter
	fails    scope.Counter
	warnings atomic.Uint64

	// reconnectLimiter paces reconnect attempts independent of the
	// backoff step table, so a flapping downstream can't spin the
	// sender loop hot between steps.
	reconnectLimiter *rate.Limiter
}

// New creates a client for endpoint and starts its sender goroutine.
// network is "udp" or "tcp"; capacity bounds the outbound queue
// (spec.md default 100 000, see config.BackendConfig.EffectiveMaxQueue).
func New(sc scope.Scope, network, endpoint string, capacity int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		endpoint:         endpoint,
		network:          network,
		queue:            make(chan []byte, capacity),
		cancel:           cancel,
		done:             make(chan struct{}),
		sends:            sc.Counter("backend_sends"),
		fails:            sc.Counter("backend_fails"),
		reconnectLimiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
	go c.run(ctx)
	return c
}

// Endpoint returns the downstream address this client targets, used as
// the memoization key across config/discovery reloads.
func (c *Client) Endpoint() string { return c.endpoint }

// TrySend enqueues payload without blocking and reports whether it was
// queued. On a full queue the payload is dropped, backend_fails
// increments, and every 1000th failure logs a warning — never more
// often, per spec.md §4.2.
func (c *Client) TrySend(payload []byte) bool {
	select {
	case c.queue <- payload:
		c.sends.Inc()
		return true
	default:
		c.fails.Inc()
		count := c.warnings.Add(1)
		if count%1000 == 1 {
			cclog.Warnf("endpoint %s: queue full, dropping (total failures %d)", c.endpoint, count)
		}
		return false
	}
}

// Close stops the sender goroutine. It does not block for the queue to
// drain; callers wanting shutdown grace should call Drain first.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}

// Drain blocks until the queue empties or the deadline passes, giving
// the sender goroutine a shutdown grace window (spec.md §5).
func (c *Client) Drain(timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(c.queue) == 0 {
			return
		}
		select {
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	var conn net.Conn
	step := 0

	dial := func() bool {
		if err := c.reconnectLimiter.Wait(ctx); err != nil {
			return false
		}
		d := net.Dialer{Timeout: 2 * time.Second}
		newConn, err := d.DialContext(ctx, c.network, c.endpoint)
		if err != nil {
			cclog.Warnf("endpoint %s: connect failed: %s", c.endpoint, err.Error())
			return false
		}
		conn = newConn
		step = 0
		return true
	}

	for {
		select {
		case <-ctx.Done():
			if conn != nil {
				conn.Close()
			}
			return
		case payload := <-c.queue:
			if conn == nil {
				if !dial() {
					c.backoffSleep(ctx, &step)
					continue
				}
			}
			if _, err := conn.Write(payload); err != nil {
				cclog.Warnf("endpoint %s: write failed: %s", c.endpoint, err.Error())
				conn.Close()
				conn = nil
				c.backoffSleep(ctx, &step)
			}
		}
	}
}

func (c *Client) backoffSleep(ctx context.Context, step *int) {
	idx := *step
	if idx >= len(backoffSteps) {
		idx = len(backoffSteps) - 1
	}
	delay := backoffSteps[idx]
	if *step < len(backoffSteps)-1 {
		*step++
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
