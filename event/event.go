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

// Package event fans workflow and archive notifications out to in-process
// observers such as metrics
package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// SubscriberBufferSize is the number of undelivered events a subscriber
	// may hold before further events to it are dropped
	SubscriberBufferSize = 20
	// AsyncQueueSize bounds PublishAsync
	AsyncQueueSize = 1000
)

type EventType string

type SubscriptionId uint64

type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

func NewEvent(eventType EventType, data any) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Data: data}
}

type subscription struct {
	id        SubscriptionId
	eventType EventType
	ch        chan Event
	closeOnce sync.Once
}

func (s *subscription) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// EventBus delivers events to subscribers of their type. Publishing never
// blocks on a subscriber
type EventBus struct {
	logger  *slog.Logger
	metrics *busMetrics

	mu     sync.RWMutex
	topics map[EventType][]*subscription
	nextId SubscriptionId

	// draining is set once Stop has closed the async queue
	draining bool
	stopped  bool

	queue    chan Event
	done     chan struct{}
	handlers sync.WaitGroup
	stopOnce sync.Once
}

// NewEventBus starts a bus with its async dispatcher. Stop releases it
func NewEventBus(promRegistry prometheus.Registerer, logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		logger:  logger.With("component", "event"),
		metrics: newBusMetrics(promRegistry),
		topics:  make(map[EventType][]*subscription),
		queue:   make(chan Event, AsyncQueueSize),
		done:    make(chan struct{}),
	}
	go e.dispatch()
	return e
}

func (e *EventBus) dispatch() {
	defer close(e.done)
	for evt := range e.queue {
		e.Publish(evt)
	}
}

// Subscribe returns a channel receiving events of the given type. The channel
// is closed by Unsubscribe or Stop
func (e *EventBus) Subscribe(eventType EventType) (SubscriptionId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextId++
	sub := &subscription{
		id:        e.nextId,
		eventType: eventType,
		ch:        make(chan Event, SubscriberBufferSize),
	}
	if e.stopped {
		sub.close()
		return sub.id, sub.ch
	}
	e.topics[eventType] = append(e.topics[eventType], sub)
	e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	return sub.id, sub.ch
}

// SubscribeFunc runs handler for each event of the given type on a goroutine
// owned by the subscription. A handler that panics is unsubscribed
func (e *EventBus) SubscribeFunc(eventType EventType, handler func(Event)) SubscriptionId {
	id, ch := e.Subscribe(eventType)
	e.handlers.Add(1)
	go func() {
		defer e.handlers.Done()
		for evt := range ch {
			if err := runHandler(handler, evt); err != nil {
				e.logger.Error(
					"event handler failed, unsubscribing",
					"type", eventType,
					"subscription", id,
					"error", err,
				)
				e.metrics.failures.WithLabelValues(string(eventType), "handler").Inc()
				e.Unsubscribe(id)
				// drain until the channel is closed
				for range ch {
				}
				return
			}
		}
	}()
	return id
}

func runHandler(handler func(Event), evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	handler(evt)
	return nil
}

// Unsubscribe removes and closes a subscription. Unknown ids are ignored
func (e *EventBus) Unsubscribe(id SubscriptionId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for eventType, subs := range e.topics {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			e.topics[eventType] = append(subs[:i:i], subs[i+1:]...)
			if len(e.topics[eventType]) == 0 {
				delete(e.topics, eventType)
			}
			e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			sub.close()
			return
		}
	}
}

// Publish hands evt to every subscriber of its type. A subscriber with a full
// buffer misses the event
func (e *EventBus) Publish(evt Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return
	}
	for _, sub := range e.topics[evt.Type] {
		select {
		case sub.ch <- evt:
		default:
			e.metrics.failures.WithLabelValues(string(evt.Type), "buffer-full").Inc()
		}
	}
	e.metrics.events.WithLabelValues(string(evt.Type)).Inc()
}

// PublishAsync queues evt for the dispatcher. It reports false when the bus
// is stopped or the queue is full
func (e *EventBus) PublishAsync(evt Event) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.draining {
		return false
	}
	select {
	case e.queue <- evt:
		return true
	default:
		e.logger.Warn("async event queue full, dropping event", "type", evt.Type)
		e.metrics.failures.WithLabelValues(string(evt.Type), "queue-full").Inc()
		return false
	}
}

// Stop delivers the events already queued, closes every subscription and
// waits for SubscribeFunc handlers to return
func (e *EventBus) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.draining = true
		close(e.queue)
		e.mu.Unlock()
		<-e.done
		e.mu.Lock()
		e.stopped = true
		for eventType, subs := range e.topics {
			for _, sub := range subs {
				sub.close()
			}
			e.metrics.subscribers.WithLabelValues(string(eventType)).Sub(float64(len(subs)))
		}
		clear(e.topics)
		e.mu.Unlock()
		e.handlers.Wait()
	})
}
