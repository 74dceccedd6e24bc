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

import "fmt"

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin stands in for a plugin whose options were invalid. It reports
// the error when started
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error { return e.Err }

func (e *ErrorPlugin) Stop() error { return nil }

func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin creates the named plugin from its options and starts it
func StartPlugin(pluginType PluginType, pluginName string) (Plugin, error) {
	label := fmt.Sprintf("%s plugin %q", PluginTypeName(pluginType), pluginName)
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, fmt.Errorf("%s not found", label)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", label, err)
	}
	return p, nil
}

// SetPluginOption overrides a plugin option before the plugin is created,
// such as pointing a data-dir at the configured database path. Options the
// plugin does not have are ignored
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	entry := findEntry(pluginType, pluginName)
	if entry == nil {
		return fmt.Errorf(
			"plugin %s of type %s not found",
			pluginName,
			PluginTypeName(pluginType),
		)
	}
	for i := range entry.Options {
		if entry.Options[i].Name == optionName {
			return entry.Options[i].setValue(value)
		}
	}
	return nil
}
