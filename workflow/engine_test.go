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

package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/event"
	"github.com/blinklabs-io/circulard/hierarchy"
	"github.com/blinklabs-io/circulard/internal/test/memstore"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	superAdmin = workflow.Actor{ID: "sa", Role: workflow.RoleSuperAdmin}
	admin      = workflow.Actor{ID: "admin", Role: workflow.RoleAdmin}
	otherAdmin = workflow.Actor{ID: "admin2", Role: workflow.RoleAdmin}
	creator    = workflow.Actor{ID: "creator", Role: workflow.RoleCreator}
	loneAuthor = workflow.Actor{ID: "lone", Role: workflow.RoleCreator}
	approver1  = workflow.Actor{ID: "ap1", Role: workflow.RoleApprover}
	approver2  = workflow.Actor{ID: "ap2", Role: workflow.RoleApprover}
	viewer     = workflow.Actor{ID: "viewer", Role: workflow.RoleViewer}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []workflow.TransitionEvent
}

func (r *recordingPublisher) PublishAsync(evt event.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt.Data.(workflow.TransitionEvent))
	return true
}

func (r *recordingPublisher) transitions() []workflow.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]workflow.Event, 0, len(r.events))
	for _, evt := range r.events {
		ret = append(ret, evt.Event)
	}
	return ret
}

type fixture struct {
	store  *memstore.Store
	engine *workflow.Engine
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	for _, u := range []directory.UserRecord{
		{ID: superAdmin.ID, Role: superAdmin.Role},
		{ID: admin.ID, Role: admin.Role},
		{ID: otherAdmin.ID, Role: otherAdmin.Role},
		{ID: creator.ID, Role: creator.Role, ManagedBy: admin.ID},
		{ID: loneAuthor.ID, Role: loneAuthor.Role},
		{ID: approver1.ID, Role: approver1.Role},
		{ID: approver2.ID, Role: approver2.Role},
		{ID: viewer.ID, Role: viewer.Role, ManagedBy: admin.ID},
	} {
		u.Name = u.ID
		u.Email = u.ID + "@example.com"
		store.AddUser(u)
	}
	var ids atomic.Int64
	var ticks atomic.Int64
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	events := &recordingPublisher{}
	engine := workflow.NewEngine(
		store,
		store,
		hierarchy.New(store),
		workflow.WithEventPublisher(events),
		workflow.WithIDGenerator(func() string {
			return fmt.Sprintf("c%d", ids.Add(1))
		}),
		workflow.WithClock(func() time.Time {
			return start.Add(time.Duration(ticks.Add(1)) * time.Minute)
		}),
	)
	return &fixture{store: store, engine: engine, events: events}
}

func sampleContent() workflow.Content {
	return workflow.Content{
		Type:           "Circular",
		Subject:        "Examination schedule",
		Body:           "The end of term examinations start on the 14th.",
		CircularNumber: "EX/2025/04",
		Date:           workflow.NewDate(2025, 3, 1),
		Signatories:    []workflow.Signatory{{Authority: "registrar", Order: 1}},
	}
}

func (f *fixture) draft(t *testing.T, author workflow.Actor) *workflow.Circular {
	t.Helper()
	c, err := f.engine.CreateDraft(context.Background(), author, sampleContent())
	require.NoError(t, err)
	return c
}

// toHigherApproval drives a new circular to Pending Higher Approval
func (f *fixture) toHigherApproval(t *testing.T, approvers ...string) *workflow.Circular {
	t.Helper()
	ctx := context.Background()
	c := f.draft(t, loneAuthor)
	_, err := f.engine.Submit(ctx, loneAuthor, c.ID)
	require.NoError(t, err)
	c, err = f.engine.SuperAdminReview(ctx, superAdmin, c.ID, workflow.SuperAdminApprove, "", approvers)
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingHigherApproval, c.Status)
	return c
}

func requireKind(t *testing.T, err error, kind workflow.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, workflow.KindOf(err), "unexpected error: %v", err)
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t, creator)
	assert.Equal(t, workflow.StateDraft, c.Status)
	assert.Equal(t, creator.ID, c.Author)
	assert.Equal(t, uint64(1), c.Version)
	assert.NotNil(t, c.AgendaPoints)
	assert.NotNil(t, c.CopyTo)
	assert.Empty(t, c.Approvers)

	_, err := f.engine.CreateDraft(context.Background(), viewer, sampleContent())
	requireKind(t, err, workflow.KindForbidden)

	content := sampleContent()
	content.Subject = " "
	content.Signatories = nil
	_, err = f.engine.CreateDraft(context.Background(), creator, content)
	requireKind(t, err, workflow.KindInvalidInput)
	assert.Contains(t, err.Error(), "subject, signatories")

	content = sampleContent()
	content.Signatories = []workflow.Signatory{{Authority: "registrar"}}
	_, err = f.engine.CreateDraft(context.Background(), creator, content)
	requireKind(t, err, workflow.KindInvalidInput)
}

func TestFullApprovalPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)

	c, err := f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, c.Status)
	assert.Equal(t, admin.ID, c.SubmittedTo)

	_, err = f.engine.AdminReview(ctx, otherAdmin, c.ID, workflow.AdminForward, "")
	requireKind(t, err, workflow.KindForbidden)

	c, err = f.engine.AdminReview(ctx, admin, c.ID, workflow.AdminForward, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSuperAdmin, c.Status)
	assert.Equal(t, superAdmin.ID, c.SubmittedTo)

	c, err = f.engine.SuperAdminReview(
		ctx,
		superAdmin,
		c.ID,
		workflow.SuperAdminApprove,
		"",
		[]string{approver1.ID, approver2.ID},
	)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHigherApproval, c.Status)
	assert.Empty(t, c.SubmittedTo)
	require.Len(t, c.Approvers, 2)

	c, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionApproved, "fine")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHigherApproval, c.Status)

	c, err = f.engine.HigherReview(ctx, approver2, c.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, c.Status)
	assert.Equal(t, uint64(6), c.Version)
	assert.Equal(t, "fine", c.Approvers[0].Feedback)

	assert.Equal(t, []workflow.Event{
		workflow.EventCreate,
		workflow.EventSubmit,
		workflow.EventAdminReview,
		workflow.EventSuperAdminReview,
		workflow.EventHigherReview,
		workflow.EventHigherReview,
	}, f.events.transitions())
}

func TestSubmitRouting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Authors without a manager go straight to the super admin
	c, err := f.engine.Submit(ctx, loneAuthor, f.draft(t, loneAuthor).ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSuperAdmin, c.Status)
	assert.Equal(t, superAdmin.ID, c.SubmittedTo)

	// Admins also report to the super admin
	c, err = f.engine.Submit(ctx, admin, f.draft(t, admin).ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSuperAdmin, c.Status)

	_, err = f.engine.Submit(ctx, loneAuthor, c.ID)
	requireKind(t, err, workflow.KindInvalidState)
}

func TestSubmitWithoutSuperAdmin(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t, loneAuthor)
	require.NoError(t, f.store.DeleteUserRecord(context.Background(), superAdmin.ID))
	_, err := f.engine.Submit(context.Background(), loneAuthor, c.ID)
	requireKind(t, err, workflow.KindConfiguration)
	stored, err := f.store.GetCircular(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDraft, stored.Status)
}

func TestRejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	_, err := f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)

	c, err = f.engine.AdminReview(ctx, admin, c.ID, workflow.AdminReject, "  ")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, c.Status)
	assert.Equal(t, "No reason provided by Admin.", c.RejectionReason)
	assert.Empty(t, c.SubmittedTo)

	content := sampleContent()
	content.Subject = "Revised examination schedule"
	c, err = f.engine.EditDraft(ctx, creator, c.ID, content)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDraft, c.Status)
	assert.Empty(t, c.RejectionReason)
	assert.Equal(t, "Revised examination schedule", c.Subject)

	c, err = f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, c.Status)

	_, err = f.engine.EditDraft(ctx, creator, c.ID, content)
	requireKind(t, err, workflow.KindForbidden)

	c, err = f.engine.AdminReview(ctx, admin, c.ID, workflow.AdminForward, "")
	require.NoError(t, err)
	c, err = f.engine.SuperAdminReview(ctx, superAdmin, c.ID, workflow.SuperAdminReject, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "No reason provided by Super Admin.", c.RejectionReason)

	// A rejected circular can be submitted again without edits
	c, err = f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, c.Status)
	assert.Empty(t, c.RejectionReason)
}

func TestInvalidDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	_, err := f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)
	_, err = f.engine.AdminReview(ctx, admin, c.ID, "Maybe", "")
	requireKind(t, err, workflow.KindInvalidInput)

	_, err = f.engine.AdminReview(ctx, admin, c.ID, workflow.AdminForward, "")
	require.NoError(t, err)
	_, err = f.engine.SuperAdminReview(ctx, superAdmin, c.ID, "Maybe", "", nil)
	requireKind(t, err, workflow.KindInvalidInput)
	_, err = f.engine.SuperAdminReview(
		ctx, superAdmin, c.ID, workflow.SuperAdminApprove, "", []string{approver1.ID, approver1.ID},
	)
	requireKind(t, err, workflow.KindInvalidInput)
	_, err = f.engine.SuperAdminReview(
		ctx, superAdmin, c.ID, workflow.SuperAdminApprove, "", []string{approver1.ID, viewer.ID},
	)
	requireKind(t, err, workflow.KindInvalidInput)
	_, err = f.engine.SuperAdminReview(
		ctx, superAdmin, c.ID, workflow.SuperAdminApprove, "", []string{"ghost"},
	)
	requireKind(t, err, workflow.KindInvalidInput)

	// Failed reviews leave the record untouched
	stored, err := f.store.GetCircular(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingSuperAdmin, stored.Status)

	c, err = f.engine.SuperAdminReview(ctx, superAdmin, c.ID, workflow.SuperAdminApprove, "", nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, c.Status)
}

func TestHigherReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.toHigherApproval(t, approver1.ID, approver2.ID)

	_, err := f.engine.HigherReview(ctx, viewer, c.ID, workflow.DecisionApproved, "")
	requireKind(t, err, workflow.KindForbidden)
	_, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionPending, "")
	requireKind(t, err, workflow.KindInvalidInput)

	c, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionRejected, "wrong term dates")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHigherApproval, c.Status)

	_, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionApproved, "")
	requireKind(t, err, workflow.KindConflict)

	c, err = f.engine.HigherReview(ctx, approver2, c.ID, workflow.DecisionRequestMeeting, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, c.Status)
	assert.Equal(t, "wrong term dates", c.RejectionReason)

	_, err = f.engine.HigherReview(ctx, approver2, c.ID, workflow.DecisionApproved, "")
	requireKind(t, err, workflow.KindInvalidState)
}

func TestResolveMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.toHigherApproval(t, approver1.ID, approver2.ID)

	_, err := f.engine.ResolveMeeting(ctx, superAdmin, c.ID)
	requireKind(t, err, workflow.KindInvalidState)

	_, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionRequestMeeting, "let us talk")
	require.NoError(t, err)
	c, err = f.engine.HigherReview(ctx, approver2, c.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingHigherApproval, c.Status)
	assert.True(t, c.MeetingRequested())

	_, err = f.engine.ResolveMeeting(ctx, admin, c.ID)
	requireKind(t, err, workflow.KindForbidden)

	c, err = f.engine.ResolveMeeting(ctx, superAdmin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.DecisionPending, c.Approvers[0].Decision)
	assert.Empty(t, c.Approvers[0].Feedback)
	assert.Equal(t, workflow.DecisionApproved, c.Approvers[1].Decision)

	c, err = f.engine.HigherReview(ctx, approver1, c.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, c.Status)
}

func TestConcurrentHigherReviews(t *testing.T) {
	f := newFixture(t)
	c := f.toHigherApproval(t, approver1.ID, approver2.ID)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []workflow.Actor{approver1, approver2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.HigherReview(
				context.Background(), actor, c.ID, workflow.DecisionApproved, "",
			)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	stored, err := f.store.GetCircular(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, stored.Status)
	assert.Equal(t, c.Version+2, stored.Version)
}

func TestMutateRetriesStaleRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	var injected atomic.Bool
	// Another process edits the subject between our read and our write
	f.store.BeforeReplace = func(next *workflow.Circular) {
		if injected.Swap(true) {
			return
		}
		competing := next.Clone()
		competing.Status = workflow.StateDraft
		competing.SubmittedTo = ""
		competing.Subject = "Edited elsewhere"
		f.store.PutCircular(competing)
	}
	c, err := f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, c.Status)
	assert.Equal(t, "Edited elsewhere", c.Subject)
	assert.Equal(t, uint64(3), c.Version)
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t, creator)
	f.store.BeforeReplace = func(next *workflow.Circular) {
		competing := next.Clone()
		competing.Status = workflow.StateDraft
		competing.SubmittedTo = ""
		f.store.PutCircular(competing)
	}
	_, err := f.engine.Submit(context.Background(), creator, c.ID)
	requireKind(t, err, workflow.KindConflict)
	f.store.BeforeReplace = nil
}

func TestMutateStopsWhenCompetingWriteChangesState(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t, creator)
	f.store.BeforeReplace = func(next *workflow.Circular) {
		competing := next.Clone()
		competing.Status = workflow.StatePendingSuperAdmin
		competing.SubmittedTo = superAdmin.ID
		f.store.PutCircular(competing)
	}
	_, err := f.engine.Submit(context.Background(), creator, c.ID)
	requireKind(t, err, workflow.KindInvalidState)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	_, err := f.engine.Submit(ctx, creator, c.ID)
	require.NoError(t, err)

	err = f.engine.Delete(ctx, creator, c.ID)
	requireKind(t, err, workflow.KindForbidden)

	other := f.draft(t, creator)
	require.NoError(t, f.engine.Delete(ctx, creator, other.ID))
	_, err = f.store.GetCircular(ctx, other.ID)
	requireKind(t, err, workflow.KindNotFound)

	require.NoError(t, f.engine.Delete(ctx, superAdmin, c.ID))
	err = f.engine.Delete(ctx, superAdmin, c.ID)
	requireKind(t, err, workflow.KindNotFound)

	approved := f.draft(t, loneAuthor)
	_, err = f.engine.Submit(ctx, loneAuthor, approved.ID)
	require.NoError(t, err)
	approved, err = f.engine.SuperAdminReview(ctx, superAdmin, approved.ID, workflow.SuperAdminApprove, "", nil)
	require.NoError(t, err)
	require.Equal(t, workflow.StateApproved, approved.Status)
	err = f.engine.Delete(ctx, loneAuthor, approved.ID)
	requireKind(t, err, workflow.KindForbidden)
	_, err = f.store.GetCircular(ctx, approved.ID)
	require.NoError(t, err)
}

func TestDeleteRechecksAfterCompetingWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	var injected atomic.Bool
	// The author submits from another session between our read and the delete
	f.store.BeforeDelete = func(id string) {
		if injected.Swap(true) {
			return
		}
		stored, err := f.store.GetCircular(ctx, id)
		require.NoError(t, err)
		stored.Status = workflow.StatePendingAdmin
		stored.SubmittedTo = admin.ID
		stored.Version++
		f.store.PutCircular(stored)
	}
	err := f.engine.Delete(ctx, creator, c.ID)
	requireKind(t, err, workflow.KindForbidden)
	stored, err := f.store.GetCircular(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, stored.Status)
}

func TestDeleteGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, creator)
	f.store.BeforeDelete = func(id string) {
		stored, err := f.store.GetCircular(ctx, id)
		require.NoError(t, err)
		stored.Version++
		f.store.PutCircular(stored)
	}
	err := f.engine.Delete(ctx, creator, c.ID)
	requireKind(t, err, workflow.KindConflict)
	f.store.BeforeDelete = nil
	_, err = f.store.GetCircular(ctx, c.ID)
	require.NoError(t, err)
}

func TestListForRoleAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.draft(t, creator)
	submitted := f.draft(t, creator)
	_, err := f.engine.Submit(ctx, creator, submitted.ID)
	require.NoError(t, err)
	adminOwn := f.draft(t, admin)
	higher := f.toHigherApproval(t, approver1.ID)
	published := higher.Clone()
	published.ID = "published"
	published.Status = workflow.StatePublished
	published.Approvers[0].Decision = workflow.DecisionApproved
	f.store.PutCircular(published)

	ids := func(list []workflow.Circular) []string {
		ret := []string{}
		for _, c := range list {
			ret = append(ret, c.ID)
		}
		return ret
	}

	list, err := f.engine.ListForRole(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, []string{submitted.ID, draft.ID}, ids(list))

	list, err = f.engine.ListForRole(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{adminOwn.ID, submitted.ID}, ids(list))

	list, err = f.engine.ListForRole(ctx, approver1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{higher.ID, published.ID}, ids(list))

	list, err = f.engine.ListForRole(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{published.ID}, ids(list))

	list, err = f.engine.ListForRole(ctx, superAdmin)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	_, err = f.engine.ListForRole(ctx, workflow.Actor{ID: "x", Role: "Janitor"})
	requireKind(t, err, workflow.KindForbidden)
	_, err = f.engine.ListAll(ctx, admin)
	requireKind(t, err, workflow.KindForbidden)

	_, err = f.engine.Get(ctx, viewer, draft.ID)
	requireKind(t, err, workflow.KindForbidden)
	got, err := f.engine.Get(ctx, viewer, published.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePublished, got.Status)
	_, err = f.engine.Get(ctx, admin, submitted.ID)
	require.NoError(t, err)
	_, err = f.engine.Get(ctx, otherAdmin, submitted.ID)
	requireKind(t, err, workflow.KindForbidden)
	_, err = f.engine.Get(ctx, approver1, higher.ID)
	require.NoError(t, err)
	_, err = f.engine.Get(ctx, creator, "missing")
	requireKind(t, err, workflow.KindNotFound)
}

func TestConcurrentSuperAdminReviewAcrossEngines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.draft(t, loneAuthor)
	_, err := f.engine.Submit(ctx, loneAuthor, c.ID)
	require.NoError(t, err)

	// A second engine on the same store does not share the in-process lock,
	// so only the version check separates the two writers
	other := workflow.NewEngine(f.store, f.store, hierarchy.New(f.store))
	var ready sync.WaitGroup
	var calls atomic.Int32
	ready.Add(2)
	// Hold both first writes until each engine has read the record
	f.store.BeforeReplace = func(*workflow.Circular) {
		if calls.Add(1) <= 2 {
			ready.Done()
			ready.Wait()
		}
	}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	decisions := []workflow.SuperAdminDecision{workflow.SuperAdminApprove, workflow.SuperAdminReject}
	for i, engine := range []*workflow.Engine{f.engine, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.SuperAdminReview(ctx, superAdmin, c.ID, decisions[i], "", nil)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, workflow.KindInvalidState)
	}
	assert.Equal(t, 1, succeeded)
	stored, err := f.store.GetCircular(ctx, c.ID)
	require.NoError(t, err)
	assert.Contains(t, []workflow.State{workflow.StateApproved, workflow.StateRejected}, stored.Status)
	assert.Equal(t, c.Version+2, stored.Version)
}
