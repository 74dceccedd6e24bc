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

// Package gcs provides the Google Cloud Storage blob plugin
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/circulard/database/plugin/blob"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BlobStoreGCS keeps archived documents as objects in a GCS bucket
type BlobStoreGCS struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	metrics         *blob.Metrics
	client          *storage.Client
	bucket          *storage.BucketHandle
	location        blob.Location
	credentialsFile string
}

// NewFromURL returns a store for a gcs://<bucket>[/prefix] location
func NewFromURL(
	rawURL string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	loc, err := blob.ParseLocation("gcs", rawURL)
	if err != nil {
		return nil, err
	}
	return New(
		WithLocation(loc),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	), nil
}

// New returns an unconnected store. Start creates the client
func New(opts ...BlobStoreGCSOptionFunc) *BlobStoreGCS {
	b := &BlobStoreGCS{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b.logger = b.logger.With("component", "database", "plugin", "gcs")
	return b
}

// ValidateCredentials checks that a configured credentials file exists
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file: %w", err)
	}
	return nil
}

func (b *BlobStoreGCS) Start() error {
	if b.location.Bucket == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(b.credentialsFile); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if b.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(b.credentialsFile),
		)
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}
	b.client = client
	b.bucket = client.Bucket(b.location.Bucket)
	b.metrics = blob.NewMetrics(b.promRegistry, "gcs")
	b.logger.Info(
		"connected to gcs blob store",
		"location", b.location.String(),
	)
	return nil
}

func (b *BlobStoreGCS) Stop() error {
	return b.Close()
}

// Close closes the client
func (b *BlobStoreGCS) Close() error {
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	b.bucket = nil
	return err
}

// Client returns the GCS client, which is nil until Start
func (b *BlobStoreGCS) Client() *storage.Client {
	return b.client
}

func (b *BlobStoreGCS) object(key string) (*storage.ObjectHandle, error) {
	if b.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return b.bucket.Object(b.location.ObjectName(key)), nil
}

// Get reads the object stored at key
func (b *BlobStoreGCS) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.object(key)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, fmt.Errorf("gcs get %q: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %q: %w", key, err)
	}
	b.metrics.Observe("get", len(data))
	return data, nil
}

// Set writes val to the object at key
func (b *BlobStoreGCS) Set(ctx context.Context, key string, val []byte) error {
	obj, err := b.object(key)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, bytes.NewReader(val)); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs put %q: %w", key, err)
	}
	b.logger.Debug(
		"gcs put ok",
		"key", key,
		"bytes", len(val),
	)
	b.metrics.Observe("set", len(val))
	return nil
}

// Delete removes the object at key
func (b *BlobStoreGCS) Delete(ctx context.Context, key string) error {
	obj, err := b.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return types.ErrBlobKeyNotFound
		}
		return fmt.Errorf("gcs delete %q: %w", key, err)
	}
	b.metrics.Observe("delete", 0)
	return nil
}

// Keys lists the keys under prefix in lexical order
func (b *BlobStoreGCS) Keys(ctx context.Context, prefix string) ([]string, error) {
	if b.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.location.ObjectName(prefix)})
	ret := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %q: %w", prefix, err)
		}
		ret = append(ret, b.location.Key(attrs.Name))
	}
	b.metrics.Observe("keys", 0)
	return ret, nil
}
