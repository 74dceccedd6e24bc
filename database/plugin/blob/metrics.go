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

package blob

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamePrefix = "database_blob_"

// Metrics counts blob operations per backend. A nil *Metrics ignores all
// observations
type Metrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
	backend    string
}

// NewMetrics registers the blob counters with registry. Registering the same
// counters twice reuses the existing collectors
func NewMetrics(registry prometheus.Registerer, backend string) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		backend: backend,
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "ops_total",
				Help: "Total number of blob operations",
			},
			[]string{"backend", "op"},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for blob operations",
			},
			[]string{"backend"},
		),
	}
	m.opsTotal = register(registry, m.opsTotal)
	m.bytesTotal = register(registry, m.bytesTotal)
	return m
}

func register[T prometheus.Collector](registry prometheus.Registerer, c T) T {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// Observe records one operation moving size bytes
func (m *Metrics) Observe(op string, size int) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(m.backend, op).Inc()
	m.bytesTotal.WithLabelValues(m.backend).Add(float64(size))
}
