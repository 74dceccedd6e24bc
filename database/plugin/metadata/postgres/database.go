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

// Package postgres provides the PostgreSQL metadata plugin
package postgres

import (
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	server       gormstore.ServerConfig
}

func NewWithOptions(opts ...PostgresOptionFunc) *MetadataStorePostgres {
	p := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(p)
	}
	p.server = p.server.WithDefaults(defaults)
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return p
}

// connString returns the configured DSN or a postgres:// URL built from the
// individual settings
func (p *MetadataStorePostgres) connString() string {
	if p.server.DSN != "" {
		return p.server.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.server.User, p.server.Password),
		Host:   net.JoinHostPort(p.server.Host, strconv.FormatUint(uint64(p.server.Port), 10)),
		Path:   "/" + p.server.Database,
	}
	q := url.Values{}
	q.Set("sslmode", p.server.SSLMode)
	if p.server.TimeZone != "" {
		q.Set("TimeZone", p.server.TimeZone)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *MetadataStorePostgres) Start() error {
	db, err := gorm.Open(postgres.Open(p.connString()), gormstore.ServerGormConfig())
	if err != nil {
		return err
	}
	p.logger.Info(
		"connected to postgres metadata store",
		"host", p.server.Host,
		"database", p.server.Database,
	)
	store, err := gormstore.OpenPooled(db, p.logger, p.promRegistry, "metadata_postgres")
	if err != nil {
		return err
	}
	p.Store = store
	return nil
}

func (p *MetadataStorePostgres) Stop() error {
	return p.Close()
}

// Close closes the connection pool if the store was started
func (p *MetadataStorePostgres) Close() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}
