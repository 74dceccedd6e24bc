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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/circulard/database"
	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/blinklabs-io/circulard/database/sops"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "circulard.config"

const (
	DefaultBlobPlugin      = database.DefaultBlobPlugin
	DefaultMetadataPlugin  = database.DefaultMetadataPlugin
	DefaultShutdownTimeout = "30s"
	DefaultTokenTtl        = "24h"

	envPrefix = "circulard"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"    split_words:"true"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"CIRCULARD_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"CIRCULARD_DATABASE_METADATA_PLUGIN"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	TlsCertFilePath string `yaml:"tlsCertFilePath" envconfig:"TLS_CERT_FILE_PATH"`
	TlsKeyFilePath  string `yaml:"tlsKeyFilePath"  envconfig:"TLS_KEY_FILE_PATH"`
	// AuthSecret signs API tokens. AuthSecretFile takes precedence and may
	// be a SOPS encrypted file
	AuthSecret      string         `yaml:"authSecret"      split_words:"true"`
	AuthSecretFile  string         `yaml:"authSecretFile"  split_words:"true"`
	TokenTtl        string         `yaml:"tokenTtl"        split_words:"true"`
	ShutdownTimeout string         `yaml:"shutdownTimeout" split_words:"true"`
	ArchiveEncrypt  bool           `yaml:"archiveEncrypt"  split_words:"true"`
	Sops            sops.KeyConfig `yaml:"sops"`
	Tracing         bool           `yaml:"tracing"`
	TracingStdout   bool           `yaml:"tracingStdout"   split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".circulard",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ApiPort:         5000,
		MetricsPort:     12799,
		TokenTtl:        DefaultTokenTtl,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	return parsePositiveDuration("shutdownTimeout", c.ShutdownTimeout)
}

// TokenTtlDuration returns the parsed token lifetime
func (c *Config) TokenTtlDuration() (time.Duration, error) {
	return parsePositiveDuration("tokenTtl", c.TokenTtl)
}

func parsePositiveDuration(name string, val string) (time.Duration, error) {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, val, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, val)
	}
	return d, nil
}

// ListenAddress is the API listener address, or "" when the API is disabled
func (c *Config) ListenAddress() string {
	if c.ApiPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.BindAddr, c.ApiPort)
}

func (c *Config) validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.TokenTtlDuration(); err != nil {
		return err
	}
	if c.ArchiveEncrypt && !c.Sops.Enabled() {
		return errors.New("archiveEncrypt requires SOPS master keys in the sops section")
	}
	return nil
}

// findConfigFile returns the first config file found in the default
// locations, or ""
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".circulard", "circulard.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/circulard/circulard.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the configuration from defaults, the YAML config file and
// the environment, in that order
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadConfigFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(configFile string, cfg *Config) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay the config section onto the defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, section := splitPluginSection("blob", tempCfg.Database.Blob)
			if name != "" {
				cfg.BlobPlugin = name
			}
			mergePluginSection(pluginConfig, "blob", section)
		}
		if tempCfg.Database.Metadata != nil {
			name, section := splitPluginSection("metadata", tempCfg.Database.Metadata)
			if name != "" {
				cfg.MetadataPlugin = name
			}
			mergePluginSection(pluginConfig, "metadata", section)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// splitPluginSection separates the "plugin" selector of a database section
// from the per-plugin option maps
func splitPluginSection(
	kind string,
	section map[string]any,
) (string, map[string]map[string]any) {
	name := ""
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			if pluginName, ok := v.(string); ok {
				name = pluginName
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any, len(val))
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(os.Stderr, "warning: skipping %s config entry %q: expected map, got %T\n", kind, k, v)
		}
	}
	return name, ret
}

func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	kind string,
	section map[string]map[string]any,
) {
	if pluginConfig[kind] == nil {
		pluginConfig[kind] = section
		return
	}
	maps.Copy(pluginConfig[kind], section)
}
