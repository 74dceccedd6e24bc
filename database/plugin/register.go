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

package plugin

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob     PluginType = 1
	PluginTypeMetadata PluginType = 2
)

// EnvPrefix is prepended to plugin option environment variable names
const EnvPrefix = "CIRCULARD"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return ""
	}
}

func PluginTypeFromString(pluginTypeStr string) PluginType {
	switch pluginTypeStr {
	case "blob":
		return PluginTypeBlob
	case "metadata":
		return PluginTypeMetadata
	default:
		return 0
	}
}

type PluginEntry struct {
	Type               PluginType
	Name               string
	Description        string
	NewFromOptionsFunc func() Plugin
	Options            []PluginOption
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry. Registering the same type and name
// twice replaces the earlier entry
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	if existing := findEntry(pluginEntry.Type, pluginEntry.Name); existing != nil {
		*existing = pluginEntry
		return
	}
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of the given type, sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// findEntry returns the registered entry, or nil. Callers hold
// pluginEntriesMutex
func findEntry(pluginType PluginType, pluginName string) *PluginEntry {
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType && pluginEntries[i].Name == pluginName {
			return &pluginEntries[i]
		}
	}
	return nil
}

// GetPlugin returns a new instance of the named plugin, or nil if it is not registered
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	pluginEntriesMutex.RLock()
	entry := findEntry(pluginType, pluginName)
	pluginEntriesMutex.RUnlock()
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc()
}

// PopulateCmdlineOptions adds a flag for every registered plugin option
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			if err := opt.AddToFlagSet(fs, PluginTypeName(p.Type), p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin option values from the environment
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		envPrefix := fmt.Sprintf(
			"%s_%s_%s_",
			EnvPrefix,
			strings.ToUpper(PluginTypeName(p.Type)),
			strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")),
		)
		for _, opt := range p.Options {
			if err := opt.ProcessEnvVars(envPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin option values from a config file. The map is
// keyed by plugin type, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for pluginTypeStr, pluginTypeData := range pluginConfig {
		pluginType := PluginTypeFromString(pluginTypeStr)
		if pluginType == 0 {
			return fmt.Errorf("unknown plugin type: %s", pluginTypeStr)
		}
		for pluginName, pluginData := range pluginTypeData {
			entry := findEntry(pluginType, pluginName)
			if entry == nil {
				return fmt.Errorf("unknown %s plugin: %s", pluginTypeStr, pluginName)
			}
			for i := range entry.Options {
				if err := entry.Options[i].ProcessConfig(pluginData); err != nil {
					return fmt.Errorf("%s plugin %s: %w", pluginTypeStr, pluginName, err)
				}
			}
		}
	}
	return nil
}
