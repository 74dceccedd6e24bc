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

	"github.com/blinklabs-io/circulard/event"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/prometheus/client_golang/prometheus"
)

const transitionsMetricName = "circulard_workflow_transitions_total"

// transitionMetrics counts workflow transitions from the event bus
type transitionMetrics struct {
	transitions *prometheus.CounterVec
}

func newTransitionMetrics(registry prometheus.Registerer) *transitionMetrics {
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: transitionsMetricName,
			Help: "circular workflow transitions, by event and states",
		},
		[]string{"event", "from", "to"},
	)
	if err := registry.Register(transitions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				transitions = existing
			}
		}
	}
	return &transitionMetrics{transitions: transitions}
}

func (m *transitionMetrics) handleEvent(evt event.Event) {
	te, ok := evt.Data.(workflow.TransitionEvent)
	if !ok {
		return
	}
	m.transitions.WithLabelValues(string(te.Event), string(te.From), string(te.To)).Inc()
}
