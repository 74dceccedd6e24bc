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

package postgres

import (
	"log/slog"

	"github.com/blinklabs-io/circulard/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
)

type PostgresOptionFunc func(*MetadataStorePostgres)

func WithLogger(logger *slog.Logger) PostgresOptionFunc {
	return func(p *MetadataStorePostgres) {
		p.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) PostgresOptionFunc {
	return func(p *MetadataStorePostgres) {
		p.promRegistry = registry
	}
}

// WithServer sets the connection settings. Empty fields keep their defaults
func WithServer(server gormstore.ServerConfig) PostgresOptionFunc {
	return func(p *MetadataStorePostgres) {
		p.server = server
	}
}
