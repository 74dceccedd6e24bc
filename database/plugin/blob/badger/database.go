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

// Package badger provides the embedded BadgerDB blob plugin
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin/blob"
	"github.com/blinklabs-io/circulard/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlockCacheSize = 256 << 20
	DefaultIndexCacheSize = 64 << 20
	DefaultGcInterval     = 5 * time.Minute
	gcDiscardRatio        = 0.5
)

// BlobStoreBadger keeps archived documents in BadgerDB under
// <data dir>/blob, or in memory when no data dir is set
type BlobStoreBadger struct {
	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	db             *badger.DB
	metrics        *blob.Metrics
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gcEnabled      bool
	gcInterval     time.Duration
	gcStop         chan struct{}
	gcDone         sync.WaitGroup
}

// New returns an unopened store. Start opens it
func New(opts ...BlobStoreBadgerOptionFunc) *BlobStoreBadger {
	b := &BlobStoreBadger{
		gcEnabled:      true,
		gcInterval:     DefaultGcInterval,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b.logger = b.logger.With("component", "database", "plugin", "badger")
	return b
}

func (b *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	if b.dataDir == "" {
		return badger.DefaultOptions("").WithInMemory(true), nil
	}
	dir := filepath.Join(b.dataDir, "blob")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return badger.Options{}, fmt.Errorf("create blob dir: %w", err)
	}
	return badger.DefaultOptions(dir).
		WithBlockCacheSize(int64(b.blockCacheSize)). //nolint:gosec
		WithIndexCacheSize(int64(b.indexCacheSize)). //nolint:gosec
		WithCompression(options.Snappy), nil
}

func (b *BlobStoreBadger) Start() error {
	if b.db != nil {
		return nil
	}
	opts, err := b.badgerOptions()
	if err != nil {
		return err
	}
	db, err := badger.Open(
		opts.WithLogger(badgerLogger{logger: b.logger}).WithLoggingLevel(badger.WARNING),
	)
	if err != nil {
		return fmt.Errorf("open badger: %w", err)
	}
	b.db = db
	b.metrics = blob.NewMetrics(b.promRegistry, "badger")
	if b.gcEnabled && b.dataDir != "" {
		b.gcStop = make(chan struct{})
		b.gcDone.Add(1)
		go b.gcLoop(b.gcStop)
	}
	return nil
}

// gcLoop rewrites value log files until badger reports nothing left to
// reclaim, once per interval
func (b *BlobStoreBadger) gcLoop(stop <-chan struct{}) {
	defer b.gcDone.Done()
	ticker := time.NewTicker(b.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		var err error
		for err == nil {
			err = b.db.RunValueLogGC(gcDiscardRatio)
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			b.logger.Warn("value log GC failed", "error", err)
		}
	}
}

func (b *BlobStoreBadger) Stop() error {
	return b.Close()
}

// Close stops garbage collection and closes the database
func (b *BlobStoreBadger) Close() error {
	if b.gcStop != nil {
		close(b.gcStop)
		b.gcStop = nil
		b.gcDone.Wait()
	}
	if b.db == nil || b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// DB returns the database handle, nil before Start
func (b *BlobStoreBadger) DB() *badger.DB {
	return b.db
}

func (b *BlobStoreBadger) Get(_ context.Context, key string) ([]byte, error) {
	var ret []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrBlobKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	b.metrics.Observe("get", len(ret))
	return ret, nil
}

// Set stores val at key, replacing any existing value
func (b *BlobStoreBadger) Set(_ context.Context, key string, val []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	}); err != nil {
		return err
	}
	b.metrics.Observe("set", len(val))
	return nil
}

func (b *BlobStoreBadger) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ErrBlobKeyNotFound
	}
	if err != nil {
		return err
	}
	b.metrics.Observe("delete", 0)
	return nil
}

// Keys returns the keys with the given prefix in lexical order
func (b *BlobStoreBadger) Keys(ctx context.Context, prefix string) ([]string, error) {
	ret := []string{}
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ret = append(ret, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.metrics.Observe("keys", 0)
	return ret, nil
}
