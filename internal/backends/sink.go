// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backends

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// sink is the thing a StatsdBackend's ring shards across: something
// addressable by endpoint string that accepts a framed payload without
// blocking. *endpoint.Client satisfies this for the "statsd" and
// "influx" backend types; natsSink satisfies it for "nats".
type sink interface {
	Endpoint() string
	TrySend(payload []byte) bool
	Close()
}

// natsSink publishes a backend's framed payloads to one subject on one
// NATS server, standing in for a socket endpoint in the shard ring.
// Grounded on pkg/nats/client.go's connect/publish idiom, the same one
// internal/discovery's natsSource uses for subscribing.
type natsSink struct {
	endpoint string
	subject  string
	conn     *nats.Conn
}

func newNatsSink(url, subject string) (*natsSink, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("backends: nats connect to %q: %w", url, err)
	}
	return &natsSink{endpoint: url, subject: subject, conn: conn}, nil
}

func (n *natsSink) Endpoint() string { return n.endpoint }

// TrySend publishes payload on the configured subject. nats.Conn.Publish
// only fails on a closed or disconnected connection, so that is the only
// case reported as a drop; there is no bounded outbound queue to fill
// the way there is for endpoint.Client; reconnection is handled by the
// nats.go client itself.
func (n *natsSink) TrySend(payload []byte) bool {
	return n.conn.Publish(n.subject, payload) == nil
}

func (n *natsSink) Close() {
	n.conn.Close()
}
