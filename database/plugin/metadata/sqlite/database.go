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

// Package sqlite provides the SQLite metadata plugin
package sqlite

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const (
	DefaultMaxConnections = 4
	DefaultVacuumInterval = 24 * time.Hour
	busyTimeout           = 5 * time.Second
)

// memoryDSN names a private in-memory database. Every connection of one store
// shares it, while separate stores stay isolated
func memoryDSN() string {
	return "file:circulard-" + uuid.NewString() + "?mode=memory&cache=shared"
}

// MetadataStoreSqlite keeps circulars, users and authorities in a SQLite
// database file. An empty data dir selects a shared in-memory database
type MetadataStoreSqlite struct {
	*gormstore.Store
	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	dataDir        string
	maxConnections int
	vacuumInterval time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// New creates and starts a SQLite metadata store
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	m := NewWithOptions(
		WithDataDir(dataDir),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err := m.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

func NewWithOptions(opts ...SqliteOptionFunc) *MetadataStoreSqlite {
	m := &MetadataStoreSqlite{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m.maxConnections <= 0 {
		m.maxConnections = DefaultMaxConnections
	}
	if m.vacuumInterval <= 0 {
		m.vacuumInterval = DefaultVacuumInterval
	}
	return m
}

// dsn creates the data dir if needed and returns the connection string for
// the database file, in WAL mode and waiting on locks instead of failing
func (m *MetadataStoreSqlite) dsn() (string, error) {
	if m.dataDir == "" {
		return memoryDSN(), nil
	}
	if err := os.MkdirAll(m.dataDir, 0o750); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(busyTimeout.Milliseconds(), 10)+")")
	q.Add("_pragma", "foreign_keys(ON)")
	return "file:" + filepath.Join(m.dataDir, "metadata.sqlite") + "?" + q.Encode(), nil
}

// Start opens the database, migrates the schema and starts periodic vacuuming
func (m *MetadataStoreSqlite) Start() error {
	dsn, err := m.dsn()
	if err != nil {
		return err
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormstore.GormConfig())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	if m.dataDir == "" {
		// shared-cache memory databases lock whole tables across connections
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(m.maxConnections)
	}
	store, err := gormstore.New(db, m.logger)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	m.Store = store
	if m.promRegistry != nil {
		err := m.promRegistry.Register(collectors.NewDBStatsCollector(sqlDB, "metadata_sqlite"))
		var are prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &are) {
			m.logger.Warn("failed to register database metrics", "error", err)
		}
	}
	if m.dataDir != "" {
		m.stopCh = make(chan struct{})
		m.wg.Add(1)
		go m.vacuumLoop(m.stopCh)
	}
	return nil
}

func (m *MetadataStoreSqlite) vacuumLoop(stopCh <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.vacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.logger.Debug("running vacuum on sqlite metadata database")
			if err := m.DB().Exec("VACUUM").Error; err != nil {
				m.logger.Error(
					"failed to free unused space in metadata store",
					"error", err,
				)
			}
		}
	}
}

func (m *MetadataStoreSqlite) Stop() error {
	return m.Close()
}

// Close stops the vacuum loop and closes the database
func (m *MetadataStoreSqlite) Close() error {
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	m.wg.Wait()
	if m.Store == nil {
		return nil
	}
	err := m.Store.Close()
	m.Store = nil
	return err
}
