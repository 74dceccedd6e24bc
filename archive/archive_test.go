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

package archive_test

import (
	"context"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circulard/archive"
	"github.com/blinklabs-io/circulard/database/sops"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/blinklabs-io/circulard/event"
	"github.com/blinklabs-io/circulard/internal/test/memstore"
	"github.com/blinklabs-io/circulard/workflow"
)

func approvedCircular(id string) *workflow.Circular {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &workflow.Circular{
		ID:        id,
		Status:    workflow.StateApproved,
		Author:    "creator",
		Approvers: []workflow.Approver{},
		Content: workflow.Content{
			Type:           "Circular",
			Subject:        "Holiday",
			Body:           "Office closed",
			CircularNumber: "C-1",
			Date:           workflow.Date{Time: now},
			AgendaPoints:   []string{},
			CopyTo:         []string{},
			Signatories:    []workflow.Signatory{{Authority: "dean", Order: 1}},
		},
		Version:   4,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type recordingPublisher struct {
	events []workflow.TransitionEvent
}

func (r *recordingPublisher) PublishAsync(evt event.Event) bool {
	r.events = append(r.events, evt.Data.(workflow.TransitionEvent))
	return true
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutCircular(approvedCircular("c1"))
	events := &recordingPublisher{}
	a, err := archive.New(store, store, archive.WithEventPublisher(events))
	require.NoError(t, err)

	published, err := a.Publish(ctx, "c1", "sa")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePublished, published.Status)
	assert.Equal(t, uint64(5), published.Version)

	stored, err := store.GetCircular(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePublished, stored.Status)

	snap, err := a.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Holiday", snap.Circular.Subject)
	assert.Equal(t, workflow.StatePublished, snap.Circular.Status)
	assert.Equal(t, "sa", snap.PublishedBy)

	ids, err := a.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	require.Len(t, events.events, 1)
	assert.Equal(t, archive.EventPublish, events.events[0].Event)
	assert.Equal(t, workflow.StateApproved, events.events[0].From)

	// Publishing twice is an invalid state
	_, err = a.Publish(ctx, "c1", "sa")
	require.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestPublishRequiresApproved(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := approvedCircular("c1")
	c.Status = workflow.StatePendingSuperAdmin
	c.SubmittedTo = "sa"
	store.PutCircular(c)
	a, err := archive.New(store, store)
	require.NoError(t, err)
	_, err = a.Publish(ctx, "c1", "sa")
	require.ErrorIs(t, err, workflow.ErrInvalidState)
	_, err = a.Publish(ctx, "missing", "sa")
	require.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = a.Get(ctx, "c1")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestPublishLosesRace(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutCircular(approvedCircular("c1"))
	// Another process deletes the approval before our write lands
	store.BeforeReplace = func(c *workflow.Circular) {
		store.BeforeReplace = nil
		moved := approvedCircular("c1")
		moved.Status = workflow.StateDraft
		moved.Version = 5
		store.PutCircular(moved)
	}
	a, err := archive.New(store, store)
	require.NoError(t, err)
	_, err = a.Publish(ctx, "c1", "sa")
	require.ErrorIs(t, err, workflow.ErrInvalidState)

	// The snapshot written for the lost attempt is removed
	_, err = store.Get(ctx, "archive/c1.json")
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	_, err = a.Get(ctx, "c1")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestSnapshotFollowsCircular(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.PutCircular(approvedCircular("c1"))
	a, err := archive.New(store, store)
	require.NoError(t, err)
	published, err := a.Publish(ctx, "c1", "sa")
	require.NoError(t, err)

	// An edit by the super admin takes the circular back to Draft
	edited := published.Clone()
	edited.Status = workflow.StateDraft
	edited.Version++
	store.PutCircular(edited)
	_, err = a.Get(ctx, "c1")
	require.ErrorIs(t, err, workflow.ErrNotFound)
	ids, err := a.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Published again without a new snapshot, the old one stays hidden
	stale := edited.Clone()
	stale.Status = workflow.StatePublished
	stale.Version++
	store.PutCircular(stale)
	_, err = a.Get(ctx, "c1")
	require.ErrorIs(t, err, workflow.ErrNotFound)

	require.NoError(t, store.DeleteCircular(ctx, "c1", stale.Version))
	_, err = a.Get(ctx, "c1")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestEncryptedArchive(t *testing.T) {
	ctx := context.Background()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv("SOPS_AGE_KEY", identity.String())
	store := memstore.New()
	store.PutCircular(approvedCircular("c1"))

	_, err = archive.New(store, store, archive.WithEncryption(sops.KeyConfig{}))
	require.ErrorIs(t, err, sops.ErrNoMasterKeys)

	a, err := archive.New(
		store,
		store,
		archive.WithEncryption(sops.KeyConfig{AgeRecipients: identity.Recipient().String()}),
	)
	require.NoError(t, err)
	_, err = a.Publish(ctx, "c1", "sa")
	require.NoError(t, err)

	raw, err := store.Get(ctx, "archive/c1.json")
	require.NoError(t, err)
	assert.True(t, sops.IsEncrypted(raw))
	assert.NotContains(t, string(raw), "Office closed")

	snap, err := a.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Office closed", snap.Circular.Body)
}
