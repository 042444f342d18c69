// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/theatrus/statsrelay/internal/config"
)

const defaultPollIntervalSeconds = 30

// pollSource is a discovery source that is queried on a fixed cadence
// rather than pushing updates itself.
type pollSource interface {
	Poll(ctx context.Context) (Update, error)
}

func newPollSource(cfg config.DiscoverySourceConfig) (pollSource, error) {
	switch cfg.Type {
	case "static_file":
		return newStaticFileSource(cfg)
	case "s3":
		return newS3Source(cfg)
	default:
		return nil, fmt.Errorf("discovery: unknown source type %q", cfg.Type)
	}
}

func pollInterval(cfg config.DiscoverySourceConfig) int {
	if cfg.PollIntervalSeconds > 0 {
		return cfg.PollIntervalSeconds
	}
	return defaultPollIntervalSeconds
}

// staticFileSource re-reads a JSON Update document from the local
// filesystem on every poll. Grounded on original_source/src/discovery.rs's
// s3_stream loop, generalized to any byte source.
type staticFileSource struct {
	path string
}

func newStaticFileSource(cfg config.DiscoverySourceConfig) (*staticFileSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("discovery: static_file source requires \"path\"")
	}
	return &staticFileSource{path: cfg.Path}, nil
}

func (s *staticFileSource) Poll(ctx context.Context) (Update, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Update{}, fmt.Errorf("discovery: read %q: %w", s.path, err)
	}
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("discovery: parse %q: %w", s.path, err)
	}
	return u, nil
}

// s3Source fetches a JSON Update document from an S3-compatible object
// store on every poll. Grounded on
// pkg/archive/parquet/reader.go's S3ParquetSource (client construction,
// GetObject call shape).
type s3Source struct {
	client *s3.Client
	bucket string
	key    string
}

func newS3Source(cfg config.DiscoverySourceConfig) (*s3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("discovery: s3 source requires \"bucket\" and \"key\"")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("discovery: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &s3Source{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (s *s3Source) Poll(ctx context.Context) (Update, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return Update{}, fmt.Errorf("discovery: get object %q/%q: %w", s.bucket, s.key, err)
	}
	defer result.Body.Close()
	var u Update
	if err := json.NewDecoder(result.Body).Decode(&u); err != nil {
		return Update{}, fmt.Errorf("discovery: parse s3 object %q/%q: %w", s.bucket, s.key, err)
	}
	return u, nil
}
