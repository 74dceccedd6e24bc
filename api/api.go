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

// Package api serves the circular workflow over JSON/HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/circulard/archive"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/workflow"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultListenAddress = ":5000"
	shutdownTimeout      = 30 * time.Second
)

// Workflow is the circular engine as seen by the HTTP layer
type Workflow interface {
	CreateDraft(ctx context.Context, actor workflow.Actor, content workflow.Content) (*workflow.Circular, error)
	EditDraft(ctx context.Context, actor workflow.Actor, id string, content workflow.Content) (*workflow.Circular, error)
	Submit(ctx context.Context, actor workflow.Actor, id string) (*workflow.Circular, error)
	AdminReview(ctx context.Context, actor workflow.Actor, id string, decision workflow.AdminDecision, reason string) (*workflow.Circular, error)
	SuperAdminReview(ctx context.Context, actor workflow.Actor, id string, decision workflow.SuperAdminDecision, reason string, approverIDs []string) (*workflow.Circular, error)
	HigherReview(ctx context.Context, actor workflow.Actor, id string, decision workflow.Decision, feedback string) (*workflow.Circular, error)
	ResolveMeeting(ctx context.Context, actor workflow.Actor, id string) (*workflow.Circular, error)
	Delete(ctx context.Context, actor workflow.Actor, id string) error
	Get(ctx context.Context, actor workflow.Actor, id string) (*workflow.Circular, error)
	ListForRole(ctx context.Context, actor workflow.Actor) ([]workflow.Circular, error)
	ListAll(ctx context.Context, actor workflow.Actor) ([]workflow.Circular, error)
}

// Directory manages accounts and signatory authorities
type Directory interface {
	CreateUser(ctx context.Context, actor workflow.Actor, req directory.NewUser) (*directory.UserRecord, error)
	ListUsers(ctx context.Context, actor workflow.Actor, role workflow.Role) ([]directory.UserRecord, error)
	Me(ctx context.Context, actor workflow.Actor) (*directory.UserRecord, error)
	DeleteUser(ctx context.Context, actor workflow.Actor, id string) error
	ListAuthorities(ctx context.Context) ([]directory.Authority, error)
	CreateAuthority(ctx context.Context, actor workflow.Actor, name string, position string) (*directory.Authority, error)
	DeleteAuthority(ctx context.Context, actor workflow.Actor, id string) error
}

// Authenticator turns requests into actors and credentials into tokens
type Authenticator interface {
	ActorFromRequest(r *http.Request) (workflow.Actor, error)
	Login(ctx context.Context, email string, password string) (string, *directory.UserRecord, error)
}

// Archive reads published snapshots
type Archive interface {
	Get(ctx context.Context, id string) (*archive.Snapshot, error)
}

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerConfig struct {
	Logger          *slog.Logger
	Workflow        Workflow
	Directory       Directory
	Auth            Authenticator
	Archive         Archive
	Health          Pinger
	ListenAddress   string
	TlsCertFilePath string
	TlsKeyFilePath  string
}

type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
	addr       net.Addr
	serveWg    sync.WaitGroup
	mu         sync.Mutex
}

func New(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config: cfg,
		logger: logger.With("component", "api"),
	}
}

// Start binds the listener and serves in the background. The server shuts
// down when ctx is cancelled or Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("server already started")
	}
	listenConfig := net.ListenConfig{
		Control: socketControl,
	}
	ln, err := listenConfig.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	useTLS := s.config.TlsCertFilePath != "" && s.config.TlsKeyFilePath != ""
	handler := s.Handler()
	if !useTLS {
		// h2c so that gRPC health clients work without TLS
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.addr = ln.Addr()
	s.serveWg.Add(1)
	go func() {
		defer s.serveWg.Done()
		var err error
		if useTLS {
			err = server.ServeTLS(ln, s.config.TlsCertFilePath, s.config.TlsKeyFilePath)
		} else {
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	stopped := stopSignal(server)
	s.serveWg.Add(1)
	go func() {
		defer s.serveWg.Done()
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:contextcheck
		if err := s.shutdown(shutdownCtx, server); err != nil {
			s.logger.Error("failed to shut down API server", "error", err)
		}
	}()
	s.logger.Info("API listener started", "address", s.addr.String(), "tls", useTLS)
	return nil
}

// stopSignal is closed once the server has been shut down
func stopSignal(server *http.Server) <-chan struct{} {
	ch := make(chan struct{})
	server.RegisterOnShutdown(func() {
		close(ch)
	})
	return ch
}

func (s *Server) shutdown(ctx context.Context, server *http.Server) error {
	s.mu.Lock()
	if s.httpServer != server {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = nil
	s.mu.Unlock()
	s.logger.Debug("shutting down API server")
	return server.Shutdown(ctx)
}

// Stop gracefully shuts down the server and waits for its goroutines
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	err := s.shutdown(ctx, server)
	s.serveWg.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

// Addr returns the bound listener address while the server runs
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
