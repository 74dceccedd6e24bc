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

package badger

import (
	"github.com/blinklabs-io/circulard/database/plugin"
)

var cmdlineOptions = struct {
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gcEnabled      bool
}{
	dataDir:        ".circulard",
	blockCacheSize: DefaultBlockCacheSize,
	indexCacheSize: DefaultIndexCacheSize,
	gcEnabled:      true,
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "embedded BadgerDB archive store, the default",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "parent of the blob directory, empty keeps everything in memory",
					DefaultValue: cmdlineOptions.dataDir,
					Dest:         &cmdlineOptions.dataDir,
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "block cache size in bytes",
					DefaultValue: cmdlineOptions.blockCacheSize,
					Dest:         &cmdlineOptions.blockCacheSize,
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "index cache size in bytes",
					DefaultValue: cmdlineOptions.indexCacheSize,
					Dest:         &cmdlineOptions.indexCacheSize,
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "periodically reclaim value log space",
					DefaultValue: cmdlineOptions.gcEnabled,
					Dest:         &cmdlineOptions.gcEnabled,
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	return New(
		WithDataDir(cmdlineOptions.dataDir),
		WithBlockCacheSize(cmdlineOptions.blockCacheSize),
		WithIndexCacheSize(cmdlineOptions.indexCacheSize),
		WithGc(cmdlineOptions.gcEnabled),
		WithLogger(plugin.DefaultLogger()),
		WithPromRegistry(plugin.DefaultPromRegistry()),
	)
}
