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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/circulard/database/plugin"
	_ "github.com/blinklabs-io/circulard/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/circulard/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These cases change the option values of the real sqlite and badger plugins
func TestSetPluginOption(t *testing.T) {
	testDefs := []struct {
		name       string
		pluginType plugin.PluginType
		plugin     string
		option     string
		value      any
		wantErr    bool
	}{
		{"sqlite in memory", plugin.PluginTypeMetadata, config.DefaultMetadataPlugin, "data-dir", "", false},
		{"sqlite wrong type", plugin.PluginTypeMetadata, config.DefaultMetadataPlugin, "data-dir", 123, true},
		{"sqlite int option", plugin.PluginTypeMetadata, config.DefaultMetadataPlugin, "max-connections", 2, false},
		{"unknown option ignored", plugin.PluginTypeMetadata, config.DefaultMetadataPlugin, "does-not-exist", "x", false},
		{"badger data dir", plugin.PluginTypeBlob, config.DefaultBlobPlugin, "data-dir", t.TempDir(), false},
		{"badger uint64", plugin.PluginTypeBlob, config.DefaultBlobPlugin, "block-cache-size", uint64(100000000), false},
		{"badger uint from int", plugin.PluginTypeBlob, config.DefaultBlobPlugin, "index-cache-size", 1 << 20, false},
		{"badger negative uint", plugin.PluginTypeBlob, config.DefaultBlobPlugin, "block-cache-size", -1, true},
		{"badger bool", plugin.PluginTypeBlob, config.DefaultBlobPlugin, "gc", true, false},
		{"missing plugin", plugin.PluginTypeMetadata, "nonexistent", "data-dir", "x", true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := plugin.SetPluginOption(testDef.pluginType, testDef.plugin, testDef.option, testDef.value)
			if testDef.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStartPlugin(t *testing.T) {
	startErr := errors.New("boom")
	name := "failing-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return plugin.NewErrorPlugin(startErr) },
	})
	_, err := plugin.StartPlugin(plugin.PluginTypeMetadata, name)
	require.ErrorIs(t, err, startErr)
	assert.ErrorContains(t, err, "start metadata plugin")

	_, err = plugin.StartPlugin(plugin.PluginTypeMetadata, "missing-"+t.Name())
	assert.ErrorContains(t, err, "not found")
}
