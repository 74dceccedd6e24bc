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

package event

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type busMetrics struct {
	events      *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

// newBusMetrics registers the bus collectors with reg, reusing any that are
// already registered. A nil reg leaves them unregistered
func newBusMetrics(reg prometheus.Registerer) *busMetrics {
	m := &busMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_bus_events_total",
				Help: "events published, by type",
			},
			[]string{"type"},
		),
		subscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "event_bus_subscribers",
				Help: "current subscriptions, by type",
			},
			[]string{"type"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_bus_delivery_errors_total",
				Help: "dropped events and failed handlers, by type and reason",
			},
			[]string{"type", "reason"},
		),
	}
	if reg != nil {
		m.events = register(reg, m.events)
		m.subscribers = register(reg, m.subscribers)
		m.failures = register(reg, m.failures)
	}
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	return c
}
