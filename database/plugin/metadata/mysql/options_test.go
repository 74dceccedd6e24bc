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

package mysql

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptionsDefaults(t *testing.T) {
	m := NewWithOptions()
	assert.Equal(t, "localhost", m.server.Host)
	assert.Equal(t, uint(3306), m.server.Port)
	assert.Equal(t, "root", m.server.User)
	assert.Equal(t, "circulard", m.server.Database)
	assert.Equal(t, "UTC", m.server.TimeZone)
	assert.NotNil(t, m.logger)
}

func TestOptionsAreApplied(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := NewWithOptions(
		WithLogger(logger),
		WithPromRegistry(reg),
		WithServer(gormstore.ServerConfig{Host: "db.local", Port: 3307}),
	)
	assert.Same(t, logger, m.logger)
	assert.Same(t, reg, m.promRegistry)
	assert.Equal(t, "db.local", m.server.Host)
	assert.Equal(t, uint(3307), m.server.Port)
	assert.Equal(t, "root", m.server.User)
}

func TestDriverConfigFromFields(t *testing.T) {
	m := NewWithOptions(WithServer(gormstore.ServerConfig{
		Host:     "db.local",
		Port:     3307,
		User:     "portal",
		Password: "secret",
		Database: "circulars",
		SSLMode:  "true",
	}))
	cfg, err := m.driverConfig()
	require.NoError(t, err)
	assert.Equal(t, "db.local:3307", cfg.Addr)
	assert.Equal(t, "portal", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "circulars", cfg.DBName)
	assert.Equal(t, "true", cfg.TLSConfig)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
}

func TestDriverConfigFromDSN(t *testing.T) {
	m := NewWithOptions(WithServer(gormstore.ServerConfig{
		Host: "ignored",
		DSN:  " root:pw@tcp(h:3306)/other ",
	}))
	cfg, err := m.driverConfig()
	require.NoError(t, err)
	assert.Equal(t, "h:3306", cfg.Addr)
	assert.Equal(t, "other", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	m = NewWithOptions(WithServer(gormstore.ServerConfig{DSN: "not a dsn"}))
	_, err = m.driverConfig()
	assert.Error(t, err)
}
