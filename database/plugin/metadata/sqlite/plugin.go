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

package sqlite

import (
	"github.com/blinklabs-io/circulard/database/plugin"
)

var cmdlineOptions struct {
	dataDir        string
	maxConnections int
}

func init() {
	cmdlineOptions.dataDir = ".circulard"
	cmdlineOptions.maxConnections = DefaultMaxConnections
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite database file, the default",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "directory holding metadata.sqlite, empty for an in-memory database",
					DefaultValue: cmdlineOptions.dataDir,
					Dest:         &cmdlineOptions.dataDir,
				},
				{
					Name:         "max-connections",
					Type:         plugin.PluginOptionTypeInt,
					Description:  "connection pool size",
					DefaultValue: cmdlineOptions.maxConnections,
					Dest:         &cmdlineOptions.maxConnections,
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	return NewWithOptions(
		WithDataDir(cmdlineOptions.dataDir),
		WithMaxConnections(cmdlineOptions.maxConnections),
		WithLogger(plugin.DefaultLogger()),
		WithPromRegistry(plugin.DefaultPromRegistry()),
	)
}
