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

package circulard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circulard/database/sops"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, DefaultListenAddress, cfg.listenAddress)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.dataDir)
	require.NoError(t, cfg.validate())
}

func TestConfigOptions(t *testing.T) {
	keys := sops.KeyConfig{AgeRecipients: "age1example"}
	cfg := NewConfig(
		WithDatabasePath("/tmp/circulard"),
		WithBlobPlugin("gcs"),
		WithMetadataPlugin("postgres"),
		WithListenAddress(""),
		WithTokenTTL(time.Hour),
		WithArchiveEncryption(keys),
		WithShutdownTimeout(5*time.Second),
	)
	assert.Equal(t, "/tmp/circulard", cfg.dataDir)
	assert.Equal(t, "gcs", cfg.blobPlugin)
	assert.Equal(t, "postgres", cfg.metadataPlugin)
	assert.Empty(t, cfg.listenAddress)
	assert.Equal(t, time.Hour, cfg.tokenTTL)
	assert.True(t, cfg.archiveEncrypt)
	assert.Equal(t, keys, cfg.archiveKeys)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	require.NoError(t, cfg.validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig(WithArchiveEncryption(sops.KeyConfig{}))
	require.Error(t, cfg.validate())

	cfg = NewConfig(WithTlsCertFilePath("cert.pem"))
	require.Error(t, cfg.validate())

	cfg = NewConfig(WithTlsCertFilePath("cert.pem"), WithTlsKeyFilePath("key.pem"))
	require.NoError(t, cfg.validate())
}
