// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backends

import (
	"fmt"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// influxPrecision maps a config "influx_precision" string to the
// library's Precision, defaulting to nanoseconds the way InfluxDB's own
// write API does.
func influxPrecision(name string) lineprotocol.Precision {
	switch name {
	case "s":
		return lineprotocol.Second
	case "ms":
		return lineprotocol.Millisecond
	case "us":
		return lineprotocol.Microsecond
	default:
		return lineprotocol.Nanosecond
	}
}

// encodeInflux promotes event and re-encodes it as one InfluxDB
// line-protocol line, measurement=metric name, a "type" tag carrying the
// statsd metric type, every statsd tag verbatim, and a single "value"
// field. Counters and gauges both land in the same float field: statsd
// itself has no separate int/float wire type.
func encodeInflux(event statsdproto.Event, precision lineprotocol.Precision, now time.Time) ([]byte, error) {
	owned, err := event.AsOwned()
	if err != nil {
		return nil, err
	}

	var enc lineprotocol.Encoder
	enc.SetPrecision(precision)
	enc.StartLine(string(owned.Id.Name))
	enc.AddTag("type", owned.Id.Type.String())
	for _, t := range owned.Id.Tags {
		enc.AddTag(string(t.Name), string(t.Value))
	}
	enc.AddField("value", lineprotocol.MustNewValue(owned.Value))
	enc.EndLine(now)
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("backends: influx encode: %w", err)
	}
	return enc.Bytes(), nil
}
