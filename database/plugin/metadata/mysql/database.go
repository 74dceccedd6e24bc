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

// Package mysql provides the MySQL metadata plugin
package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// errUnknownDatabase is the server error number for a missing schema
const errUnknownDatabase = 1049

type MetadataStoreMysql struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	server       gormstore.ServerConfig
}

func NewWithOptions(opts ...MysqlOptionFunc) *MetadataStoreMysql {
	m := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(m)
	}
	m.server = m.server.WithDefaults(defaults)
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return m
}

// driverConfig returns the parsed driver configuration, taken from the DSN
// when one is set
func (m *MetadataStoreMysql) driverConfig() (*mysql.Config, error) {
	if m.server.DSN != "" {
		cfg, err := mysql.ParseDSN(m.server.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg, nil
	}
	cfg := mysql.NewConfig()
	cfg.User = m.server.User
	cfg.Passwd = m.server.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.server.Host, strconv.FormatUint(uint64(m.server.Port), 10))
	cfg.DBName = m.server.Database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if loc, err := time.LoadLocation(m.server.TimeZone); err == nil {
		cfg.Loc = loc
	}
	if m.server.SSLMode != "" {
		cfg.TLSConfig = m.server.SSLMode
	}
	return cfg, nil
}

func (m *MetadataStoreMysql) Start() error {
	cfg, err := m.driverConfig()
	if err != nil {
		return err
	}
	db, err := gorm.Open(gormmysql.Open(cfg.FormatDSN()), gormstore.ServerGormConfig())
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errUnknownDatabase {
		if err := m.createDatabase(*cfg); err != nil {
			return err
		}
		db, err = gorm.Open(gormmysql.Open(cfg.FormatDSN()), gormstore.ServerGormConfig())
	}
	if err != nil {
		return err
	}
	m.logger.Info(
		"connected to mysql metadata store",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	store, err := gormstore.OpenPooled(db, m.logger, m.promRegistry, "metadata_mysql")
	if err != nil {
		return err
	}
	m.Store = store
	return nil
}

// createDatabase connects without a schema and creates cfg.DBName
func (m *MetadataStoreMysql) createDatabase(cfg mysql.Config) error {
	name := cfg.DBName
	if name == "" {
		return errors.New("no database name to create")
	}
	cfg.DBName = ""
	db, err := gorm.Open(gormmysql.Open(cfg.FormatDSN()), gormstore.GormConfig())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)).Error; err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	m.logger.Info("created mysql database", "database", name)
	return nil
}

func (m *MetadataStoreMysql) Stop() error {
	return m.Close()
}

// Close closes the connection pool if the store was started
func (m *MetadataStoreMysql) Close() error {
	if m.Store == nil {
		return nil
	}
	return m.Store.Close()
}
