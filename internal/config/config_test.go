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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circulard/database/sops"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "circulard.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, "0.0.0.0:5000", cfg.ListenAddress())
}

func TestLoadConfigFile(t *testing.T) {
	tmpFile := writeConfig(t, `
databasePath: "/var/lib/circulard"
bindAddr: "127.0.0.1"
apiPort: 8080
metricsPort: 9000
tlsCertFilePath: "cert1.pem"
tlsKeyFilePath: "key1.pem"
authSecretFile: "/etc/circulard/secret"
tokenTtl: "2h"
shutdownTimeout: "10s"
archiveEncrypt: true
sops:
  ageRecipients: "age1example"
`)
	expected := defaultConfig()
	expected.DatabasePath = "/var/lib/circulard"
	expected.BindAddr = "127.0.0.1"
	expected.ApiPort = 8080
	expected.MetricsPort = 9000
	expected.TlsCertFilePath = "cert1.pem"
	expected.TlsKeyFilePath = "key1.pem"
	expected.AuthSecretFile = "/etc/circulard/secret"
	expected.TokenTtl = "2h"
	expected.ShutdownTimeout = "10s"
	expected.ArchiveEncrypt = true
	expected.Sops = sops.KeyConfig{AgeRecipients: "age1example"}

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)

	ttl, err := cfg.TokenTtlDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)
}

func TestLoadConfigSectionAndDatabasePlugins(t *testing.T) {
	tmpFile := writeConfig(t, `
config:
  apiPort: 0
database:
  blob:
    plugin: "s3"
    s3:
      url: "s3://archive/circulars"
  metadata:
    plugin: "postgres"
    postgres:
      host: "db.internal"
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.BlobPlugin)
	assert.Equal(t, "postgres", cfg.MetadataPlugin)
	assert.Empty(t, cfg.ListenAddress())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	tmpFile := writeConfig(t, "apiPort: 8080\n")
	t.Setenv("CIRCULARD_API_PORT", "9090")
	t.Setenv("CIRCULARD_DATABASE_METADATA_PLUGIN", "mysql")
	t.Setenv("SOPS_AGE_RECIPIENTS", "age1fromenv")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(9090), cfg.ApiPort)
	assert.Equal(t, "mysql", cfg.MetadataPlugin)
	assert.Equal(t, "age1fromenv", cfg.Sops.AgeRecipients)
}

func TestLoadConfigErrors(t *testing.T) {
	testDefs := map[string]string{
		"bad duration":        "shutdownTimeout: soon\n",
		"negative ttl":        "tokenTtl: -1h\n",
		"encrypt without key": "archiveEncrypt: true\n",
		"bad yaml":            "apiPort: [\n",
	}
	for name, content := range testDefs {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			require.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	assert.Same(t, cfg, FromContext(WithContext(context.Background(), cfg)))
}
