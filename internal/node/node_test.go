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

package node

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:    t.TempDir(),
		BlobPlugin:      config.DefaultBlobPlugin,
		MetadataPlugin:  config.DefaultMetadataPlugin,
		BindAddr:        "127.0.0.1",
		ApiPort:         5000,
		TokenTtl:        config.DefaultTokenTtl,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestPortalOptionsAuthSecret(t *testing.T) {
	cfg := testConfig(t)
	_, err := PortalOptions(cfg, discardLogger(), true)
	require.ErrorContains(t, err, "auth secret is required")

	// No secret needed without the API
	_, err = PortalOptions(cfg, discardLogger(), false)
	require.NoError(t, err)

	cfg.ApiPort = 0
	_, err = PortalOptions(cfg, discardLogger(), true)
	require.NoError(t, err)
}

func TestLoadAuthSecretFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))
	cfg.AuthSecret = "ignored"
	cfg.AuthSecretFile = path
	secret, err := loadAuthSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte("file-secret"), secret)

	cfg.AuthSecretFile = filepath.Join(t.TempDir(), "missing")
	_, err = loadAuthSecret(cfg)
	require.Error(t, err)
}

func TestPortalOptionsRejectsBadDurations(t *testing.T) {
	cfg := testConfig(t)
	cfg.ShutdownTimeout = "soon"
	_, err := PortalOptions(cfg, discardLogger(), false)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.TokenTtl = "-1h"
	_, err = PortalOptions(cfg, discardLogger(), false)
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	p, err := Open(testConfig(t), discardLogger())
	require.NoError(t, err)
	assert.Empty(t, p.APIAddress())

	_, err = p.Directory().Provision(t.Context(), directory.NewUser{
		Name:     "Registrar",
		Email:    "registrar@example.com",
		Password: "secret-password",
		Role:     workflow.RoleSuperAdmin,
	})
	require.NoError(t, err)
	list, err := p.Engine().ListForRole(
		t.Context(),
		workflow.Actor{ID: "viewer", Role: workflow.RoleViewer},
	)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, p.Stop())
}

func TestOpenArchiveEncryptionNeedsKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveEncrypt = true
	_, err := Open(cfg, discardLogger())
	require.Error(t, err)
}
