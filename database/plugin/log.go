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
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger provides a logging interface for plugins.
type Logger interface {
	Info(string, ...any)
	Warn(string, ...any)
	Debug(string, ...any)
	Error(string, ...any)
}

var (
	defaultLogger       *slog.Logger
	defaultPromRegistry prometheus.Registerer
	defaultsMutex       sync.RWMutex
)

// SetDefaults sets the logger and metrics registry handed to plugins created
// from command line options
func SetDefaults(logger *slog.Logger, promRegistry prometheus.Registerer) {
	defaultsMutex.Lock()
	defer defaultsMutex.Unlock()
	defaultLogger = logger
	defaultPromRegistry = promRegistry
}

// DefaultLogger returns the plugin logger, which discards output until
// SetDefaults is called
func DefaultLogger() *slog.Logger {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()
	if defaultLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return defaultLogger
}

// DefaultPromRegistry returns the registry set with SetDefaults, if any
func DefaultPromRegistry() prometheus.Registerer {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()
	return defaultPromRegistry
}
