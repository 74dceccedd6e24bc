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

package workflow

import "github.com/blinklabs-io/circulard/event"

const TransitionEventType event.EventType = "workflow.transition"

// TransitionEvent is published after a change to a circular has been stored.
// From is empty for creation and To is empty for deletion
type TransitionEvent struct {
	CircularID string
	Event      Event
	Actor      Actor
	From       State
	To         State
}

// EventPublisher accepts notifications without blocking
type EventPublisher interface {
	PublishAsync(event.Event) bool
}

// NewTransitionEvent wraps te for the event bus
func NewTransitionEvent(te TransitionEvent) event.Event {
	return event.NewEvent(TransitionEventType, te)
}
