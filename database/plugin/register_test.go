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
	"slices"
	"testing"

	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct{ id int }

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func registerMock(pluginType plugin.PluginType, name string, id int) {
	plugin.Register(plugin.PluginEntry{
		Type:               pluginType,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{id: id} },
	})
}

func TestRegisterAndGetPlugin(t *testing.T) {
	name := "registry-" + t.Name()
	registerMock(plugin.PluginTypeBlob, name, 1)
	p := plugin.GetPlugin(plugin.PluginTypeBlob, name)
	require.IsType(t, &mockPlugin{}, p)
	assert.Equal(t, 1, p.(*mockPlugin).id)

	// a second registration replaces the first
	registerMock(plugin.PluginTypeBlob, name, 2)
	assert.Equal(t, 2, plugin.GetPlugin(plugin.PluginTypeBlob, name).(*mockPlugin).id)
	count := 0
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if entry.Name == name {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, name))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "missing-"+t.Name()))
}

func TestGetPluginsFiltersAndSorts(t *testing.T) {
	registerMock(plugin.PluginTypeBlob, "zz-"+t.Name(), 0)
	registerMock(plugin.PluginTypeBlob, "aa-"+t.Name(), 0)
	registerMock(plugin.PluginTypeMetadata, "mm-"+t.Name(), 0)

	blobs := plugin.GetPlugins(plugin.PluginTypeBlob)
	names := make([]string, 0, len(blobs))
	for _, entry := range blobs {
		assert.Equal(t, plugin.PluginTypeBlob, entry.Type)
		names = append(names, entry.Name)
	}
	assert.True(t, slices.IsSorted(names), "names not sorted: %v", names)
	assert.Contains(t, names, "aa-"+t.Name())
	assert.Contains(t, names, "zz-"+t.Name())
	assert.NotContains(t, names, "mm-"+t.Name())
}

type optionDest struct {
	name    string
	enabled bool
	workers int
	size    uint64
}

func registerOptionPlugin(t *testing.T, name string) *optionDest {
	t.Helper()
	dest := &optionDest{}
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{Name: "name", Type: plugin.PluginOptionTypeString, DefaultValue: "default", Dest: &dest.name},
			{Name: "enabled", Type: plugin.PluginOptionTypeBool, DefaultValue: false, Dest: &dest.enabled},
			{Name: "workers", Type: plugin.PluginOptionTypeInt, DefaultValue: 1, Dest: &dest.workers},
			{Name: "size", Type: plugin.PluginOptionTypeUint, DefaultValue: uint64(8), Dest: &dest.size, CustomEnvVar: "TEST_PLUGIN_SIZE"},
		},
	})
	return dest
}

func TestProcessConfig(t *testing.T) {
	name := "config-test"
	dest := registerOptionPlugin(t, name)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			name: {
				"name":    "from-config",
				"enabled": true,
				"workers": 4,
				"size":    16,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, optionDest{name: "from-config", enabled: true, workers: 4, size: 16}, *dest)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {name: {"size": -1}},
	})
	assert.ErrorContains(t, err, "negative")
	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {name: {"name": 42}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", dest.name)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {"unknown-plugin": {}},
	})
	assert.ErrorContains(t, err, "unknown metadata plugin")
	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"cache": {},
	})
	assert.ErrorContains(t, err, "unknown plugin type")
}

func TestProcessEnvVars(t *testing.T) {
	name := "env-test"
	dest := registerOptionPlugin(t, name)
	t.Setenv("CIRCULARD_METADATA_ENV_TEST_NAME", "from-env")
	t.Setenv("CIRCULARD_METADATA_ENV_TEST_ENABLED", "true")
	t.Setenv("TEST_PLUGIN_SIZE", "32")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "from-env", dest.name)
	assert.True(t, dest.enabled)
	assert.Equal(t, uint64(32), dest.size)

	t.Setenv("CIRCULARD_METADATA_ENV_TEST_WORKERS", "many")
	assert.Error(t, plugin.ProcessEnvVars())
}

func TestPopulateCmdlineOptions(t *testing.T) {
	name := "flag-test"
	dest := registerOptionPlugin(t, name)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NoError(t, fs.Parse([]string{
		"--metadata-flag-test-name=from-flag",
		"--metadata-flag-test-workers=7",
	}))
	assert.Equal(t, "from-flag", dest.name)
	assert.Equal(t, 7, dest.workers)
	// registering the flag applies its default
	assert.Equal(t, uint64(8), dest.size)
}
