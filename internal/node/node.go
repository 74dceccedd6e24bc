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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/circulard"
	"github.com/blinklabs-io/circulard/auth"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PortalOptions translates the loaded configuration into portal options.
// With serveAPI unset the API is disabled and no auth secret is needed
func PortalOptions(
	cfg *config.Config,
	logger *slog.Logger,
	serveAPI bool,
) ([]circulard.ConfigOptionFunc, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	tokenTTL, err := cfg.TokenTtlDuration()
	if err != nil {
		return nil, err
	}
	opts := []circulard.ConfigOptionFunc{
		circulard.WithLogger(logger),
		circulard.WithDatabasePath(cfg.DatabasePath),
		circulard.WithBlobPlugin(cfg.BlobPlugin),
		circulard.WithMetadataPlugin(cfg.MetadataPlugin),
		circulard.WithTlsCertFilePath(cfg.TlsCertFilePath),
		circulard.WithTlsKeyFilePath(cfg.TlsKeyFilePath),
		circulard.WithTokenTTL(tokenTTL),
		circulard.WithShutdownTimeout(shutdownTimeout),
		circulard.WithTracing(cfg.Tracing),
		circulard.WithTracingStdout(cfg.TracingStdout),
	}
	if cfg.ArchiveEncrypt {
		opts = append(opts, circulard.WithArchiveEncryption(cfg.Sops))
	}
	listenAddress := ""
	if serveAPI {
		listenAddress = cfg.ListenAddress()
	}
	opts = append(opts, circulard.WithListenAddress(listenAddress))
	if listenAddress != "" {
		secret, err := loadAuthSecret(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, circulard.WithAuthSecret(secret))
	}
	return opts, nil
}

func loadAuthSecret(cfg *config.Config) ([]byte, error) {
	if cfg.AuthSecretFile != "" {
		secret, err := auth.LoadSecretFile(cfg.AuthSecretFile)
		if err != nil {
			return nil, fmt.Errorf("load auth secret: %w", err)
		}
		return secret, nil
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New(
			"an auth secret is required to serve the API: set authSecret or authSecretFile",
		)
	}
	return []byte(cfg.AuthSecret), nil
}

// Open builds a portal with its stores opened but without the API, for one
// shot administrative commands. The caller must Stop it
func Open(cfg *config.Config, logger *slog.Logger) (*circulard.Portal, error) {
	opts, err := PortalOptions(cfg, logger, false)
	if err != nil {
		return nil, err
	}
	p, err := circulard.New(circulard.NewConfig(opts...))
	if err != nil {
		return nil, err
	}
	if err := p.Open(); err != nil {
		_ = p.Stop()
		return nil, err
	}
	return p, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := PortalOptions(cfg, logger, true)
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	opts = append(
		opts,
		// Enable metrics with default prometheus registry
		circulard.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	p, err := circulard.New(circulard.NewConfig(opts...))
	if err != nil {
		return err
	}
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		// Metrics and debug listener
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	errChan := make(chan error, 2)
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}
	// Run portal in goroutine
	go func() {
		//nolint:contextcheck
		errChan <- p.Run(signalCtx)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("portal error", "error", runErr)
		} else {
			logger.Info("portal stopped")
		}
	}
	signalCtxStop()

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	if err := p.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	if runErr == nil {
		logger.Info("shutdown complete")
	}
	return runErr
}
