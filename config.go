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
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/circulard/database/sops"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListenAddress   = ":5000"
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	dataDir         string
	blobPlugin      string
	metadataPlugin  string
	listenAddress   string
	tlsCertFilePath string
	tlsKeyFilePath  string
	authSecret      []byte
	tokenTTL        time.Duration
	archiveKeys     sops.KeyConfig
	archiveEncrypt  bool
	bcryptCost      int
	tracing         bool
	tracingStdout   bool
	shutdownTimeout time.Duration
}

type ConfigOptionFunc func(*Config)

// NewConfig creates a new portal config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		listenAddress:   DefaultListenAddress,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	if c.archiveEncrypt && !c.archiveKeys.Enabled() {
		return errors.New("archive encryption requires at least one SOPS master key")
	}
	if (c.tlsCertFilePath == "") != (c.tlsKeyFilePath == "") {
		return errors.New("TLS needs both a certificate and a key file")
	}
	return nil
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithListenAddress specifies the address of the HTTP API. An empty string
// disables the API server
func WithListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.listenAddress = addr
	}
}

// WithTlsCertFilePath specifies the path to the TLS certificate for the HTTP API
func WithTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithTlsKeyFilePath specifies the path to the TLS key for the HTTP API
func WithTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithAuthSecret specifies the key used to sign API tokens
func WithAuthSecret(secret []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.authSecret = secret
	}
}

func WithTokenTTL(ttl time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenTTL = ttl
	}
}

// WithArchiveEncryption seals archived snapshots with SOPS using the given
// master keys
func WithArchiveEncryption(keys sops.KeyConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.archiveKeys = keys
		c.archiveEncrypt = true
	}
}

// WithBcryptCost overrides the password hashing cost. Tests use a low value
func WithBcryptCost(cost int) ConfigOptionFunc {
	return func(c *Config) {
		c.bcryptCost = cost
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
