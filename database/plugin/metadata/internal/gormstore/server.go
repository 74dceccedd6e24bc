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

package gormstore

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// ServerConfig holds the connection settings of a networked SQL server
type ServerConfig struct {
	Host     string
	Port     uint
	User     string
	Password string
	Database string
	SSLMode  string
	TimeZone string
	// DSN replaces every other field when set
	DSN string
}

// WithDefaults fills the empty fields of c from def
func (c ServerConfig) WithDefaults(def ServerConfig) ServerConfig {
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.User == "" {
		c.User = def.User
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.SSLMode == "" {
		c.SSLMode = def.SSLMode
	}
	if c.TimeZone == "" {
		c.TimeZone = def.TimeZone
	}
	c.DSN = strings.TrimSpace(c.DSN)
	return c
}

// ServerFlags is the flag, env and config file binding of a ServerConfig
type ServerFlags struct {
	Host     string
	Port     uint64
	User     string
	Password string
	Database string
	SSLMode  string
	TimeZone string
	DSN      string
}

// Config converts the bound values, applying def for anything left empty
func (f *ServerFlags) Config(def ServerConfig) ServerConfig {
	return ServerConfig{
		Host:     f.Host,
		Port:     uint(f.Port),
		User:     f.User,
		Password: f.Password,
		Database: f.Database,
		SSLMode:  f.SSLMode,
		TimeZone: f.TimeZone,
		DSN:      f.DSN,
	}.WithDefaults(def)
}

// Options returns the plugin options for a server whose environment variables
// start with envPrefix, such as MYSQL
func (f *ServerFlags) Options(
	label string,
	envPrefix string,
	def ServerConfig,
	sslModeHelp string,
) []plugin.PluginOption {
	str := func(name, help, envSuffix, defValue string, dest *string) plugin.PluginOption {
		*dest = defValue
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeString,
			Description:  label + " " + help,
			DefaultValue: defValue,
			CustomEnvVar: envPrefix + "_" + envSuffix,
			Dest:         dest,
		}
	}
	f.Port = uint64(def.Port)
	return []plugin.PluginOption{
		str("host", "host", "HOST", def.Host, &f.Host),
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  label + " port",
			DefaultValue: uint64(def.Port),
			CustomEnvVar: envPrefix + "_PORT",
			Dest:         &f.Port,
		},
		str("user", "user", "USER", def.User, &f.User),
		str("password", "password (required)", "PASSWORD", "", &f.Password),
		str("database", "database name", "DATABASE", def.Database, &f.Database),
		str("ssl-mode", sslModeHelp, "SSLMODE", def.SSLMode, &f.SSLMode),
		str("timezone", "time zone", "TIMEZONE", def.TimeZone, &f.TimeZone),
		str("dsn", "connection string, overrides the other options", "DSN", "", &f.DSN),
	}
}

// OpenPooled finishes opening a server backed store: it sizes the connection
// pool, migrates the schema and exports pool statistics as metricsName
func OpenPooled(
	db *gorm.DB,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	metricsName string,
) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	store, err := New(db, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if promRegistry != nil {
		if err := promRegistry.Register(
			collectors.NewDBStatsCollector(sqlDB, metricsName),
		); err != nil {
			logger.Warn("failed to register database metrics", "error", err)
		}
	}
	return store, nil
}

// ServerGormConfig is GormConfig with prepared statements enabled
func ServerGormConfig() *gorm.Config {
	cfg := GormConfig()
	cfg.PrepareStmt = true
	return cfg
}
