// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

// Event is a tagged union of {Pdu | Owned}. Backends that only re-shard
// stay on the Pdu branch to avoid parse cost; processors that need values
// promote to Owned. A sum type (rather than an interface) keeps fan-out
// cloning of unparsed PDUs a plain struct copy.
type Event struct {
	pdu   *Pdu
	owned *Owned
}

func EventFromPdu(p *Pdu) Event     { return Event{pdu: p} }
func EventFromOwned(o *Owned) Event { return Event{owned: o} }

// IsOwned reports whether the event already carries a parsed value,
// i.e. promotion would be free.
func (e Event) IsOwned() bool { return e.owned != nil }

// AsOwned returns the event's fully parsed form, promoting from the Pdu
// branch if necessary.
func (e Event) AsOwned() (*Owned, error) {
	if e.owned != nil {
		return e.owned, nil
	}
	return Promote(e.pdu)
}

// AsPdu returns the event's wire form, serializing from the Owned branch
// if necessary. Unlike AsOwned this never fails.
func (e Event) AsPdu() *Pdu {
	if e.pdu != nil {
		return e.pdu
	}
	return e.owned.ToPdu()
}

// Name returns the metric name without requiring a full promotion when
// the event is already a Pdu.
func (e Event) Name() []byte {
	if e.pdu != nil {
		return e.pdu.Name()
	}
	return e.owned.Id.Name
}
