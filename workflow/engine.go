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

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxReplaceAttempts bounds how often an operation is re-run after losing a
// compare-and-swap to a writer in another process
const maxReplaceAttempts = 3

// Engine applies workflow transitions to circulars
type Engine struct {
	store    CircularStore
	users    UserDirectory
	resolver Resolver
	events   EventPublisher
	logger   *slog.Logger
	locks    keyedMutex
	now      func() time.Time
	newID    func() string
}

type EngineOptionFunc func(*Engine)

func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithEventPublisher(events EventPublisher) EngineOptionFunc {
	return func(e *Engine) {
		e.events = events
	}
}

func WithClock(now func() time.Time) EngineOptionFunc {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) EngineOptionFunc {
	return func(e *Engine) {
		e.newID = newID
	}
}

func NewEngine(
	store CircularStore,
	users UserDirectory,
	resolver Resolver,
	opts ...EngineOptionFunc,
) *Engine {
	e := &Engine{
		store:    store,
		users:    users,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.logger = e.logger.With("component", "workflow")
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// CreateDraft stores a new circular in Draft authored by the actor
func (e *Engine) CreateDraft(
	ctx context.Context,
	actor Actor,
	content Content,
) (*Circular, error) {
	if err := authorize(EventCreate, actor, nil); err != nil {
		return nil, err
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	now := e.now()
	c := &Circular{
		ID:        e.newID(),
		Status:    StateDraft,
		Author:    actor.ID,
		Approvers: []Approver{},
		Content:   content,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to store circular: %w", err)
	}
	if err := e.store.CreateCircular(ctx, c); err != nil {
		return nil, fmt.Errorf("create circular: %w", err)
	}
	e.publish(EventCreate, actor, "", c)
	return c, nil
}

// EditDraft replaces the content of a circular and restarts its workflow
func (e *Engine) EditDraft(
	ctx context.Context,
	actor Actor,
	id string,
	content Content,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventEdit, func(c *Circular) error {
		normalized, err := normalizeContent(content)
		if err != nil {
			return err
		}
		c.Content = normalized
		c.Status = StateDraft
		c.SubmittedTo = ""
		c.RejectionReason = ""
		c.Approvers = []Approver{}
		return nil
	})
}

// Submit routes a Draft or Rejected circular to the author's reviewer
func (e *Engine) Submit(
	ctx context.Context,
	actor Actor,
	id string,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventSubmit, func(c *Circular) error {
		author, err := e.users.GetUser(ctx, c.Author)
		if err != nil {
			return fmt.Errorf("look up author: %w", err)
		}
		target, err := e.resolver.ResolveSubmissionTarget(ctx, *author)
		if err != nil {
			return err
		}
		c.Status = target.Status
		c.SubmittedTo = target.UserID
		c.RejectionReason = ""
		c.Approvers = []Approver{}
		return nil
	})
}

// AdminReview forwards a circular to the Super Admin or rejects it
func (e *Engine) AdminReview(
	ctx context.Context,
	actor Actor,
	id string,
	decision AdminDecision,
	reason string,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventAdminReview, func(c *Circular) error {
		switch decision {
		case AdminForward:
			superAdmin, err := e.resolver.SuperAdmin(ctx)
			if err != nil {
				return err
			}
			c.Status = StatePendingSuperAdmin
			c.SubmittedTo = superAdmin.ID
			c.RejectionReason = ""
		case AdminReject:
			c.Status = StateRejected
			c.RejectionReason = reasonOrDefault(reason, defaultAdminRejectReason)
			c.SubmittedTo = ""
			c.Approvers = []Approver{}
		default:
			return NewError(KindInvalidInput, "invalid admin decision %q", decision)
		}
		return nil
	})
}

// SuperAdminReview approves a circular outright, sends it to higher
// approvers, or rejects it
func (e *Engine) SuperAdminReview(
	ctx context.Context,
	actor Actor,
	id string,
	decision SuperAdminDecision,
	reason string,
	approverIDs []string,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventSuperAdminReview, func(c *Circular) error {
		c.SubmittedTo = ""
		c.RejectionReason = ""
		switch decision {
		case SuperAdminReject:
			c.Status = StateRejected
			c.RejectionReason = reasonOrDefault(reason, defaultSuperAdminRejectReason)
			c.Approvers = []Approver{}
		case SuperAdminApprove:
			if len(approverIDs) == 0 {
				c.Status = StateApproved
				c.Approvers = []Approver{}
				return nil
			}
			if err := e.validateApprovers(ctx, approverIDs); err != nil {
				return err
			}
			approvers := make([]Approver, 0, len(approverIDs))
			for _, userID := range approverIDs {
				approvers = append(approvers, Approver{
					User:     userID,
					Decision: DecisionPending,
				})
			}
			c.Status = StatePendingHigherApproval
			c.Approvers = approvers
		default:
			return NewError(KindInvalidInput, "invalid super admin decision %q", decision)
		}
		return nil
	})
}

// HigherReview records one approver's decision and applies the aggregation rule
func (e *Engine) HigherReview(
	ctx context.Context,
	actor Actor,
	id string,
	decision Decision,
	feedback string,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventHigherReview, func(c *Circular) error {
		if !decision.Valid() || decision == DecisionPending {
			return NewError(KindInvalidInput, "invalid decision %q", decision)
		}
		idx := c.ApproverIndex(actor.ID)
		if c.Approvers[idx].Decision != DecisionPending {
			return NewError(
				KindConflict,
				"you have already submitted a decision for this circular",
			)
		}
		c.Approvers[idx].Decision = decision
		c.Approvers[idx].Feedback = feedback
		c.Status, c.RejectionReason = Aggregate(c.Approvers)
		return nil
	})
}

// ResolveMeeting opens a new decision round for the approvers that asked for
// a meeting, once every approver has answered and nobody rejected
func (e *Engine) ResolveMeeting(
	ctx context.Context,
	actor Actor,
	id string,
) (*Circular, error) {
	return e.mutate(ctx, actor, id, EventResolveMeeting, func(c *Circular) error {
		if !c.MeetingRequested() {
			return NewError(
				KindInvalidState,
				"no meeting has been requested for this circular",
			)
		}
		for i := range c.Approvers {
			if c.Approvers[i].Decision == DecisionRequestMeeting {
				c.Approvers[i].Decision = DecisionPending
				c.Approvers[i].Feedback = ""
			}
		}
		return nil
	})
}

// Delete removes a circular. Like mutate it retries when the record changes
// between the authorization check and the delete
func (e *Engine) Delete(ctx context.Context, actor Actor, id string) error {
	unlock := e.locks.lock(id)
	defer unlock()
	for attempt := 1; ; attempt++ {
		c, err := e.store.GetCircular(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(EventDelete, actor, c); err != nil {
			return err
		}
		err = e.store.DeleteCircular(ctx, id, c.Version)
		if err == nil {
			e.publish(EventDelete, actor, c.Status, &Circular{ID: id})
			return nil
		}
		if !errors.Is(err, ErrStaleRecord) {
			return fmt.Errorf("delete circular: %w", err)
		}
		if attempt >= maxReplaceAttempts {
			return NewError(
				KindConflict,
				"circular %s is being modified concurrently, retry the request",
				id,
			)
		}
		e.logger.Debug(
			"circular changed underneath us, retrying",
			"circular", id,
			"event", EventDelete,
			"attempt", attempt,
		)
	}
}

// mutate runs one read-modify-write cycle. The apply func receives a private
// copy of the stored record that has already passed authorization. A lost
// compare-and-swap restarts the cycle against the fresh record
func (e *Engine) mutate(
	ctx context.Context,
	actor Actor,
	id string,
	event Event,
	apply func(*Circular) error,
) (*Circular, error) {
	unlock := e.locks.lock(id)
	defer unlock()
	for attempt := 1; ; attempt++ {
		current, err := e.store.GetCircular(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(event, actor, current); err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := apply(next); err != nil {
			return nil, err
		}
		if err := next.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("refusing to store circular %s: %w", id, err)
		}
		next.Version = current.Version + 1
		next.UpdatedAt = e.now()
		err = e.store.ReplaceCircular(ctx, next, current.Version)
		if err == nil {
			e.publish(event, actor, current.Status, next)
			return next, nil
		}
		if !errors.Is(err, ErrStaleRecord) {
			return nil, fmt.Errorf("replace circular: %w", err)
		}
		if attempt >= maxReplaceAttempts {
			return nil, NewError(
				KindConflict,
				"circular %s is being modified concurrently, retry the request",
				id,
			)
		}
		e.logger.Debug(
			"circular changed underneath us, retrying",
			"circular", id,
			"event", event,
			"attempt", attempt,
		)
	}
}

func (e *Engine) validateApprovers(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return NewError(KindInvalidInput, "approver id must not be empty")
		}
		if _, ok := seen[id]; ok {
			return NewError(KindInvalidInput, "approver %s selected more than once", id)
		}
		seen[id] = struct{}{}
	}
	users, err := e.users.FindUsersByIds(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up approvers: %w", err)
	}
	valid := 0
	for _, u := range users {
		if _, ok := seen[u.ID]; ok && u.Role == RoleApprover {
			valid++
		}
	}
	if valid != len(ids) {
		return NewError(
			KindInvalidInput,
			"one or more selected higher approvers are invalid",
		)
	}
	return nil
}

func (e *Engine) publish(evt Event, actor Actor, from State, c *Circular) {
	e.logger.Debug(
		"circular transition",
		"circular", c.ID,
		"event", evt,
		"actor", actor.ID,
		"from", from,
		"to", c.Status,
	)
	if e.events == nil {
		return
	}
	e.events.PublishAsync(NewTransitionEvent(TransitionEvent{
		CircularID: c.ID,
		Event:      evt,
		Actor:      actor,
		From:       from,
		To:         c.Status,
	}))
}

func reasonOrDefault(reason string, def string) string {
	if strings.TrimSpace(reason) == "" {
		return def
	}
	return reason
}

// normalizeContent checks the required fields and fills optional lists
func normalizeContent(content Content) (Content, error) {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"type", content.Type},
		{"subject", content.Subject},
		{"body", content.Body},
		{"circularNumber", content.CircularNumber},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if content.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(content.Signatories) == 0 {
		missing = append(missing, "signatories")
	}
	if len(missing) > 0 {
		return content, NewError(
			KindInvalidInput,
			"missing required circular fields: %s",
			strings.Join(missing, ", "),
		)
	}
	for i, s := range content.Signatories {
		if s.Authority == "" || s.Order <= 0 {
			return content, NewError(
				KindInvalidInput,
				"signatory %d must have an authority and a positive order",
				i+1,
			)
		}
	}
	if content.AgendaPoints == nil {
		content.AgendaPoints = []string{}
	}
	if content.CopyTo == nil {
		content.CopyTo = []string{}
	}
	return content, nil
}
