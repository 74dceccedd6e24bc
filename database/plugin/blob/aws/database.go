// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package aws provides the S3 blob plugin
package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/circulard/database/plugin/blob"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 60 * time.Second

// BlobStoreS3 keeps archived documents as objects in an S3 bucket
type BlobStoreS3 struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	metrics      *blob.Metrics
	client       *s3.Client
	location     blob.Location
	region       string
	endpoint     string
	timeout      time.Duration
}

// NewFromURL returns a store for an s3://<bucket>[/prefix] location
func NewFromURL(
	rawURL string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	loc, err := blob.ParseLocation("s3", rawURL)
	if err != nil {
		return nil, err
	}
	return New(
		WithLocation(loc),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	), nil
}

// New returns an unconnected store. Start loads the AWS config
func New(opts ...BlobStoreS3OptionFunc) *BlobStoreS3 {
	b := &BlobStoreS3{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b.logger = b.logger.With("component", "database", "plugin", "s3")
	return b
}

func (b *BlobStoreS3) Start() error {
	if b.location.Bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	var loadOpts []func(*config.LoadOptions) error
	if b.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(b.region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("s3 blob: load AWS config: %w", err)
	}
	b.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
	})
	b.metrics = blob.NewMetrics(b.promRegistry, "s3")
	b.logger.Info("connected to s3 blob store", "location", b.location.String())
	return nil
}

func (b *BlobStoreS3) Stop() error {
	return b.Close()
}

// Close drops the client. The SDK holds no connections that need closing
func (b *BlobStoreS3) Close() error {
	b.client = nil
	return nil
}

// Client returns the S3 client, which is nil until Start
func (b *BlobStoreS3) Client() *s3.Client {
	return b.client
}

// Bucket returns the bucket name
func (b *BlobStoreS3) Bucket() string {
	return b.location.Bucket
}

// opContext bounds a single request by the configured timeout
func (b *BlobStoreS3) opContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// objectRef returns the bucket and object key arguments for key
func (b *BlobStoreS3) objectRef(key string) (*string, *string) {
	return aws.String(b.location.Bucket), aws.String(b.location.ObjectName(key))
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// Get reads the object stored at key
func (b *BlobStoreS3) Get(ctx context.Context, key string) ([]byte, error) {
	if b.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	ctx, cancel := b.opContext(ctx)
	defer cancel()
	input := &s3.GetObjectInput{}
	input.Bucket, input.Key = b.objectRef(key)
	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		b.logger.Error("s3 get failed", "key", key, "error", err)
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		b.logger.Error("s3 read failed", "key", key, "error", err)
		return nil, err
	}
	b.metrics.Observe("get", len(data))
	return data, nil
}

// Set writes val to the object at key
func (b *BlobStoreS3) Set(ctx context.Context, key string, val []byte) error {
	if b.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := b.opContext(ctx)
	defer cancel()
	input := &s3.PutObjectInput{
		Body:        bytes.NewReader(val),
		ContentType: aws.String("application/json"),
	}
	input.Bucket, input.Key = b.objectRef(key)
	_, err := b.client.PutObject(ctx, input)
	if err != nil {
		b.logger.Error("s3 put failed", "key", key, "error", err)
		return err
	}
	b.logger.Debug("s3 put ok", "key", key, "bytes", len(val))
	b.metrics.Observe("set", len(val))
	return nil
}

// Delete removes the object at key. S3 deletes are idempotent, so the object
// is looked up first to report missing keys
func (b *BlobStoreS3) Delete(ctx context.Context, key string) error {
	if b.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := b.opContext(ctx)
	defer cancel()
	head := &s3.HeadObjectInput{}
	head.Bucket, head.Key = b.objectRef(key)
	_, err := b.client.HeadObject(ctx, head)
	if err != nil {
		if isS3NotFound(err) {
			return types.ErrBlobKeyNotFound
		}
		return err
	}
	del := &s3.DeleteObjectInput{}
	del.Bucket, del.Key = b.objectRef(key)
	_, err = b.client.DeleteObject(ctx, del)
	if err != nil {
		b.logger.Error("s3 delete failed", "key", key, "error", err)
		return err
	}
	b.metrics.Observe("delete", 0)
	return nil
}

// Keys lists the keys under prefix in lexical order
func (b *BlobStoreS3) Keys(ctx context.Context, prefix string) ([]string, error) {
	if b.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.location.Bucket),
	}
	if fullPrefix := b.location.ObjectName(prefix); fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}
	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	keys := make([]string, 0)
	for paginator.HasMorePages() {
		pageCtx, cancel := b.opContext(ctx)
		page, err := paginator.NextPage(pageCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, b.location.Key(aws.ToString(obj.Key)))
		}
	}
	sort.Strings(keys)
	b.metrics.Observe("keys", 0)
	return keys, nil
}
