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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePlugins(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlugins(&buf, plugin.PluginTypeBlob, plugin.PluginTypeMetadata))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Blob storage plugins:\n"))
	assert.Contains(t, out, "\nMetadata storage plugins:\n")
	assert.Contains(t, out, "  badger")
	assert.Contains(t, out, "  sqlite")
	blobSection, _, _ := strings.Cut(out, "Metadata storage plugins")
	assert.NotContains(t, blobSection, "postgres")
}

func TestRequestedListings(t *testing.T) {
	saved := rootFlags
	t.Cleanup(func() { rootFlags = saved })

	rootFlags.blob = "badger"
	rootFlags.metadata = "sqlite"
	assert.Empty(t, requestedListings())

	rootFlags.metadata = listPluginsValue
	assert.Equal(t, []plugin.PluginType{plugin.PluginTypeMetadata}, requestedListings())

	rootFlags.blob = listPluginsValue
	assert.Equal(
		t,
		[]plugin.PluginType{plugin.PluginTypeBlob, plugin.PluginTypeMetadata},
		requestedListings(),
	)
}

func TestNewRootCommand(t *testing.T) {
	cmd, err := newRootCommand()
	require.NoError(t, err)
	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"serve", "user", "publish", "archive", "list", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("blob"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("metadata"))
}
