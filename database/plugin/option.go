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
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

type PluginOption struct {
	Name         string
	Type         PluginOptionType
	Description  string
	DefaultValue any
	Dest         any
	CustomEnvVar string
	CustomFlag   string
}

func (p *PluginOption) flagName(pluginType string, pluginName string) string {
	if p.CustomFlag != "" {
		return p.CustomFlag
	}
	return fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
}

func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := p.flagName(pluginType, pluginName)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok {
			return fmt.Errorf("option %s: expected *string destination", flagName)
		}
		def, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok {
			return fmt.Errorf("option %s: expected *bool destination", flagName)
		}
		def, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok {
			return fmt.Errorf("option %s: expected *int destination", flagName)
		}
		def, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok {
			return fmt.Errorf("option %s: expected *uint64 destination", flagName)
		}
		def, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, def, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, flagName)
	}
	return nil
}

func (p *PluginOption) ProcessEnvVars(envPrefix string) error {
	envVar := p.CustomEnvVar
	if envVar == "" {
		envVar = envPrefix + strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_"))
	}
	value, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}
	return p.setFromString(value, envVar)
}

// ProcessConfig applies the value for this option from a plugin's config file
// section, if present
func (p *PluginOption) ProcessConfig(pluginData map[string]any) error {
	value, ok := pluginData[p.Name]
	if !ok {
		return nil
	}
	if s, ok := value.(string); ok {
		return p.setFromString(s, p.Name)
	}
	if p.Type == PluginOptionTypeString {
		return p.setFromString(fmt.Sprint(value), p.Name)
	}
	return p.setValue(value)
}

// setValue assigns an already typed value. Uint options also take
// non-negative ints, which is what YAML and literals produce
func (p *PluginOption) setValue(value any) error {
	switch p.Type {
	case PluginOptionTypeString:
		return assignTyped[string](p, value)
	case PluginOptionTypeBool:
		return assignTyped[bool](p, value)
	case PluginOptionTypeInt:
		return assignTyped[int](p, value)
	case PluginOptionTypeUint:
		if v, ok := value.(int); ok {
			if v < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			value = uint64(v)
		}
		return assignTyped[uint64](p, value)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
}

func assignTyped[T any](opt *PluginOption, value any) error {
	v, ok := value.(T)
	if !ok {
		var zero T
		return fmt.Errorf("invalid type for option %s: expected %T, got %T", opt.Name, zero, value)
	}
	return assignOption(opt, v)
}

func (p *PluginOption) setFromString(value string, source string) error {
	switch p.Type {
	case PluginOptionTypeString:
		return assignOption(p, value)
	case PluginOptionTypeBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value for %s: %w", source, err)
		}
		return assignOption(p, v)
	case PluginOptionTypeInt:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value for %s: %w", source, err)
		}
		return assignOption(p, v)
	case PluginOptionTypeUint:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid uint value for %s: %w", source, err)
		}
		return assignOption(p, v)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
}

// assignOption stores value into the option destination after checking that
// the destination has the matching pointer type
func assignOption[T any](opt *PluginOption, value T) error {
	if opt.Dest == nil {
		return fmt.Errorf("nil destination for option %s", opt.Name)
	}
	dest, ok := opt.Dest.(*T)
	if !ok || dest == nil {
		return fmt.Errorf(
			"invalid destination type for option %s: expected %T",
			opt.Name,
			dest,
		)
	}
	*dest = value
	return nil
}
