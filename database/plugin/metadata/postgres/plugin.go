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

package postgres

import (
	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
)

var defaults = gormstore.ServerConfig{
	Host:     "localhost",
	Port:     5432,
	User:     "postgres",
	Database: "circulard",
	SSLMode:  "disable",
	TimeZone: "UTC",
}

var cmdlineOptions gormstore.ServerFlags

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "postgres",
			Description:        "PostgreSQL relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: cmdlineOptions.Options(
				"Postgres",
				"POSTGRES",
				defaults,
				"sslmode connection parameter",
			),
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	return NewWithOptions(
		WithServer(cmdlineOptions.Config(defaults)),
		WithLogger(plugin.DefaultLogger()),
		WithPromRegistry(plugin.DefaultPromRegistry()),
	)
}
