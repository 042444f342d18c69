// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"encoding/json"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/nats-io/nats.go"

	"github.com/theatrus/statsrelay/internal/config"
)

// natsSource subscribes to a subject and treats each message body as a
// discovery Update payload, for push-driven shard-map changes rather
// than poller pull (SPEC_FULL.md §11.2). Grounded on
// pkg/nats/client.go's connect/subscribe/error-handler idiom.
type natsSource struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

func newNatsSource(cfg config.DiscoverySourceConfig, onUpdate func(Update)) (*natsSource, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, fmt.Errorf("discovery: nats source requires \"url\" and \"subject\"")
	}

	opts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				cclog.Warnf("discovery: nats disconnected: %s", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			cclog.Infof("discovery: nats reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			cclog.Warnf("discovery: nats error: %s", err.Error())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("discovery: nats connect to %q: %w", cfg.URL, err)
	}

	sub, err := conn.Subscribe(cfg.Subject, func(msg *nats.Msg) {
		var u Update
		if err := json.Unmarshal(msg.Data, &u); err != nil {
			cclog.Warnf("discovery: nats message on %q: %s", cfg.Subject, err.Error())
			return
		}
		onUpdate(u)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("discovery: nats subscribe to %q: %w", cfg.Subject, err)
	}

	return &natsSource{conn: conn, sub: sub}, nil
}

func (n *natsSource) Close() {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
