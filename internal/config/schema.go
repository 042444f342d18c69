// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// jsonSchema is the embedded JSON Schema checked against every config
// document before it is activated, independent of the Go struct decode.
// It catches shape errors (missing required keys, wrong types) that a
// lenient decode would otherwise silently zero-value.
const jsonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["statsd"],
  "properties": {
    "admin": {
      "type": "object",
      "required": ["port"],
      "properties": { "port": { "type": "integer", "minimum": 1, "maximum": 65535 } }
    },
    "statsd": {
      "type": "object",
      "required": ["servers", "backends"],
      "properties": {
        "servers": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["bind", "route"],
            "properties": {
              "bind": { "type": "string" },
              "socket": { "type": "string" },
              "route": { "type": "array", "items": { "type": "string" } }
            }
          }
        },
        "backends": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "properties": {
              "type": { "type": "string", "enum": ["statsd", "influx", "nats"] },
              "shard_map": { "type": "array", "items": { "type": "string" } },
              "shard_map_source": { "type": "string" },
              "prefix": { "type": "string" },
              "suffix": { "type": "string" },
              "input_filter": { "type": "string" },
              "input_blocklist": { "type": "string" },
              "max_queue": { "type": "integer", "minimum": 1 },
              "nats_subject": { "type": "string" },
              "influx_precision": { "type": "string" }
            }
          }
        }
      }
    },
    "processors": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["type", "route"],
        "properties": {
          "type": { "type": "string", "enum": ["tag_converter", "sampler", "cardinality", "regex_filter"] },
          "route": { "type": "array", "items": { "type": "string" } },
          "window": { "type": "integer", "minimum": 1 },
          "timer_reservoir_size": { "type": "integer", "minimum": 1 },
          "size_limit": { "type": "integer", "minimum": 1 },
          "buckets": { "type": "integer", "minimum": 1 },
          "allow": { "type": "array", "items": { "type": "string" } },
          "remove": { "type": "array", "items": { "type": "string" } },
          "expr": { "type": "string" }
        }
      }
    },
    "discovery": {
      "type": "object",
      "properties": {
        "sources": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": { "type": "string", "enum": ["static_file", "s3", "nats"] },
              "path": { "type": "string" },
              "bucket": { "type": "string" },
              "key": { "type": "string" },
              "region": { "type": "string" },
              "url": { "type": "string" },
              "subject": { "type": "string" },
              "poll_interval_seconds": { "type": "integer", "minimum": 1 }
            }
          }
        }
      }
    }
  }
}`
