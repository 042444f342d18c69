// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

// Type is the statsd metric kind, carried by the single- or double-byte
// wire token between the two trailing pipes of a PDU.
type Type uint8

const (
	Counter Type = iota
	Timer
	Gauge
	DirectGauge
	Set
)

func (t Type) Bytes() []byte {
	switch t {
	case Counter:
		return []byte("c")
	case Timer:
		return []byte("ms")
	case Gauge:
		return []byte("g")
	case DirectGauge:
		return []byte("G")
	case Set:
		return []byte("s")
	default:
		return nil
	}
}

func (t Type) String() string {
	return string(t.Bytes())
}

func parseType(raw []byte) (Type, error) {
	switch string(raw) {
	case "c":
		return Counter, nil
	case "ms":
		return Timer, nil
	case "g":
		return Gauge, nil
	case "G":
		return DirectGauge, nil
	case "s":
		return Set, nil
	default:
		return 0, ErrInvalidMetricType
	}
}
