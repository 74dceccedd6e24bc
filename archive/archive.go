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

// Package archive publishes approved circulars by storing an immutable
// snapshot in the blob store and marking the record Published
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/circulard/database/sops"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/blinklabs-io/circulard/workflow"
)

const (
	keyPrefix = "archive/"
	keySuffix = ".json"

	// EventPublish labels the Approved to Published change in transition
	// events
	EventPublish workflow.Event = "publish"

	maxPublishAttempts = 3
)

// BlobStore is the subset of the blob plugin API the archive needs
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Snapshot is the archived form of a published circular
type Snapshot struct {
	Circular    workflow.Circular `json:"circular"`
	PublishedAt time.Time         `json:"publishedAt"`
	PublishedBy string            `json:"publishedBy,omitempty"`
}

type Archive struct {
	store   workflow.CircularStore
	blob    BlobStore
	events  workflow.EventPublisher
	logger  *slog.Logger
	keys    sops.KeyConfig
	encrypt bool
	now     func() time.Time
}

type ArchiveOptionFunc func(*Archive)

func WithLogger(logger *slog.Logger) ArchiveOptionFunc {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithEncryption stores snapshots as SOPS documents sealed for keys
func WithEncryption(keys sops.KeyConfig) ArchiveOptionFunc {
	return func(a *Archive) {
		a.keys = keys
		a.encrypt = true
	}
}

func WithEventPublisher(events workflow.EventPublisher) ArchiveOptionFunc {
	return func(a *Archive) {
		a.events = events
	}
}

func WithClock(now func() time.Time) ArchiveOptionFunc {
	return func(a *Archive) {
		a.now = now
	}
}

func New(
	store workflow.CircularStore,
	blob BlobStore,
	opts ...ArchiveOptionFunc,
) (*Archive, error) {
	a := &Archive{
		store: store,
		blob:  blob,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.encrypt && !a.keys.Enabled() {
		return nil, sops.ErrNoMasterKeys
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "archive")
	if a.now == nil {
		a.now = func() time.Time { return time.Now().UTC() }
	}
	return a, nil
}

func snapshotKey(id string) string {
	return keyPrefix + id + keySuffix
}

// Publish archives an Approved circular and moves it to Published. The
// snapshot is written before the status change and only counts once the
// stored record carries the same version, so a lost update never exposes it
func (a *Archive) Publish(ctx context.Context, id string, publishedBy string) (*workflow.Circular, error) {
	for attempt := 1; ; attempt++ {
		current, err := a.store.GetCircular(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != workflow.StateApproved {
			if attempt > 1 {
				a.discard(ctx, id)
			}
			return nil, workflow.NewError(
				workflow.KindInvalidState,
				"only approved circulars can be published, %s is %q",
				id,
				current.Status,
			)
		}
		now := a.now()
		next := current.Clone()
		next.Status = workflow.StatePublished
		next.Version = current.Version + 1
		next.UpdatedAt = now
		if err := a.write(ctx, Snapshot{Circular: *next, PublishedAt: now, PublishedBy: publishedBy}); err != nil {
			return nil, err
		}
		err = a.store.ReplaceCircular(ctx, next, current.Version)
		if err == nil {
			a.logger.Info("circular published", "circular", id, "by", publishedBy)
			a.notify(publishedBy, next)
			return next, nil
		}
		if !errors.Is(err, workflow.ErrStaleRecord) {
			a.discard(ctx, id)
			return nil, fmt.Errorf("replace circular: %w", err)
		}
		if attempt >= maxPublishAttempts {
			a.discard(ctx, id)
			return nil, workflow.NewError(
				workflow.KindConflict,
				"circular %s is being modified concurrently, retry the request",
				id,
			)
		}
	}
}

// discard removes a snapshot left by a failed Publish unless another writer
// has published the circular in the meantime
func (a *Archive) discard(ctx context.Context, id string) {
	current, err := a.store.GetCircular(ctx, id)
	if err == nil && current.Status == workflow.StatePublished {
		return
	}
	if err := a.blob.Delete(ctx, snapshotKey(id)); err != nil &&
		!errors.Is(err, types.ErrBlobKeyNotFound) {
		a.logger.Warn("failed to remove unpublished snapshot", "circular", id, "error", err)
	}
}

func (a *Archive) write(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if a.encrypt {
		data, err = sops.Encrypt(data, a.keys)
		if err != nil {
			return fmt.Errorf("encrypt snapshot: %w", err)
		}
	}
	if err := a.blob.Set(ctx, snapshotKey(snap.Circular.ID), data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (a *Archive) notify(actorID string, c *workflow.Circular) {
	if a.events == nil {
		return
	}
	a.events.PublishAsync(workflow.NewTransitionEvent(workflow.TransitionEvent{
		CircularID: c.ID,
		Event:      EventPublish,
		Actor:      workflow.Actor{ID: actorID, Role: workflow.RoleSuperAdmin},
		From:       workflow.StateApproved,
		To:         workflow.StatePublished,
	}))
}

// Get returns the archived snapshot of a circular that is Published now.
// Snapshots of circulars that were since edited, deleted or never got
// published are reported as not found
func (a *Archive) Get(ctx context.Context, id string) (*Snapshot, error) {
	notArchived := workflow.NewError(workflow.KindNotFound, "no archived copy of circular %s", id)
	current, err := a.store.GetCircular(ctx, id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return nil, notArchived
		}
		return nil, err
	}
	if current.Status != workflow.StatePublished {
		return nil, notArchived
	}
	snap, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Circular.Version != current.Version {
		return nil, notArchived
	}
	return snap, nil
}

// load reads and decrypts a stored snapshot. A missing key yields nil
func (a *Archive) load(ctx context.Context, id string) (*Snapshot, error) {
	data, err := a.blob.Get(ctx, snapshotKey(id))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if sops.IsEncrypted(data) {
		data, err = sops.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt snapshot: %w", err)
		}
	}
	var ret Snapshot
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &ret, nil
}

// List returns the ids of the archived circulars that are still Published
func (a *Archive) List(ctx context.Context) ([]string, error) {
	keys, err := a.blob.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	ret := make([]string, 0, len(keys))
	for _, key := range keys {
		id, ok := strings.CutSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix)
		if !ok || id == "" {
			continue
		}
		current, err := a.store.GetCircular(ctx, id)
		if err != nil {
			if errors.Is(err, workflow.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if current.Status == workflow.StatePublished {
			ret = append(ret, id)
		}
	}
	return ret, nil
}
