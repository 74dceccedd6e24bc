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

// Package circulard assembles the circular approval portal from its storage,
// workflow, identity and API components
package circulard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/circulard/api"
	"github.com/blinklabs-io/circulard/archive"
	"github.com/blinklabs-io/circulard/auth"
	"github.com/blinklabs-io/circulard/database"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/event"
	"github.com/blinklabs-io/circulard/hierarchy"
	"github.com/blinklabs-io/circulard/workflow"
)

type Portal struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	engine        *workflow.Engine
	directory     *directory.Directory
	auth          *auth.Authenticator
	archive       *archive.Archive
	api           *api.Server
	apiMu         sync.Mutex
	stopping      bool
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	openOnce      sync.Once
	openErr       error
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Portal, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Portal{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}, nil
}

// Open connects the storage plugins and builds the workflow components. It
// is called by Run and may be used directly by one-shot commands
func (p *Portal) Open() error {
	p.openOnce.Do(func() {
		p.openErr = p.open()
	})
	return p.openErr
}

func (p *Portal) open() error {
	// Configure tracing
	if p.config.tracing {
		if err := p.setupTracing(); err != nil {
			return err
		}
	}
	db, err := database.New(&database.Config{
		BlobPlugin:     p.config.blobPlugin,
		MetadataPlugin: p.config.metadataPlugin,
		DataDir:        p.config.dataDir,
		Logger:         p.config.logger,
		PromRegistry:   p.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	p.db = db
	if p.config.promRegistry != nil {
		metrics := newTransitionMetrics(p.config.promRegistry)
		p.eventBus.SubscribeFunc(workflow.TransitionEventType, metrics.handleEvent)
	}
	transitionLogger := p.config.logger.With("component", "workflow")
	p.eventBus.SubscribeFunc(workflow.TransitionEventType, func(evt event.Event) {
		te, ok := evt.Data.(workflow.TransitionEvent)
		if !ok {
			return
		}
		transitionLogger.Debug(
			"circular transition",
			"circular", te.CircularID,
			"event", te.Event,
			"actor", te.Actor.ID,
			"from", te.From,
			"to", te.To,
		)
	})
	p.directory = directory.New(
		db,
		directory.WithLogger(p.config.logger),
		directory.WithBcryptCost(p.config.bcryptCost),
	)
	p.engine = workflow.NewEngine(
		db,
		db,
		hierarchy.New(db, hierarchy.WithLogger(p.config.logger)),
		workflow.WithLogger(p.config.logger),
		workflow.WithEventPublisher(p.eventBus),
	)
	archiveOpts := []archive.ArchiveOptionFunc{
		archive.WithLogger(p.config.logger),
		archive.WithEventPublisher(p.eventBus),
	}
	if p.config.archiveEncrypt {
		archiveOpts = append(archiveOpts, archive.WithEncryption(p.config.archiveKeys))
	}
	p.archive, err = archive.New(db, db.Blob(), archiveOpts...)
	if err != nil {
		return fmt.Errorf("failed to set up archive: %w", err)
	}
	return nil
}

// Run opens the portal and serves the API until Stop is called
func (p *Portal) Run(ctx context.Context) error {
	if err := p.Open(); err != nil {
		return err
	}
	if p.config.listenAddress != "" {
		authenticator, err := auth.New(
			p.config.authSecret,
			auth.WithLogger(p.config.logger),
			auth.WithTokenTTL(p.config.tokenTTL),
			auth.WithCredentials(p.db),
		)
		if err != nil {
			return fmt.Errorf("failed to set up authentication: %w", err)
		}
		p.auth = authenticator
		server := api.New(api.ServerConfig{
			Logger:          p.config.logger,
			Workflow:        p.engine,
			Directory:       p.directory,
			Auth:            p.auth,
			Archive:         p.archive,
			Health:          p.db,
			ListenAddress:   p.config.listenAddress,
			TlsCertFilePath: p.config.tlsCertFilePath,
			TlsKeyFilePath:  p.config.tlsKeyFilePath,
		})
		if err := server.Start(ctx); err != nil {
			return err
		}
		p.apiMu.Lock()
		if p.stopping {
			p.apiMu.Unlock()
			return server.Stop(ctx)
		}
		p.api = server
		p.apiMu.Unlock()
	}
	// Wait for shutdown signal
	<-p.done
	return nil
}

func (p *Portal) Engine() *workflow.Engine {
	return p.engine
}

func (p *Portal) Directory() *directory.Directory {
	return p.directory
}

func (p *Portal) Archive() *archive.Archive {
	return p.archive
}

func (p *Portal) Database() *database.Database {
	return p.db
}

// APIAddress returns the bound API listener address, or "" when the API is
// not running
func (p *Portal) APIAddress() string {
	p.apiMu.Lock()
	defer p.apiMu.Unlock()
	if p.api == nil || p.api.Addr() == nil {
		return ""
	}
	return p.api.Addr().String()
}

func (p *Portal) Stop() error {
	var err error
	p.shutdownOnce.Do(func() {
		err = p.shutdown()
	})
	return err
}

func (p *Portal) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.shutdownTimeout)
	defer cancel()

	var err error
	p.config.logger.Debug("starting graceful shutdown")

	p.apiMu.Lock()
	p.stopping = true
	server := p.api
	p.apiMu.Unlock()
	if server != nil {
		if stopErr := server.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Stop event delivery before closing the stores
	p.eventBus.Stop()

	if p.db != nil {
		if closeErr := p.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	for _, fn := range p.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	p.shutdownFuncs = nil

	p.config.logger.Debug("graceful shutdown complete")
	close(p.done)
	return err
}
