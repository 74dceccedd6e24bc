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

import "slices"

// Event names a workflow operation
type Event string

const (
	EventCreate           Event = "create"
	EventEdit             Event = "edit"
	EventSubmit           Event = "submit"
	EventAdminReview      Event = "admin-review"
	EventSuperAdminReview Event = "super-admin-review"
	EventHigherReview     Event = "higher-review"
	EventResolveMeeting   Event = "resolve-meeting"
	EventDelete           Event = "delete"
)

// transition describes who may fire an event and from where. Checks run in
// field order: role, then source state, then the relationship to the record
type transition struct {
	roles  []Role
	from   []State
	permit func(Actor, *Circular) bool
	// denied is the message used when permit fails
	denied string
}

func isAuthor(a Actor, c *Circular) bool {
	return a.ID == c.Author
}

func isAssignedReviewer(a Actor, c *Circular) bool {
	return c.SubmittedTo != "" && a.ID == c.SubmittedTo
}

func isListedApprover(a Actor, c *Circular) bool {
	return c.ApproverIndex(a.ID) >= 0
}

// superAdminOrEditableByAuthor covers edit and delete: a Super Admin may touch
// any circular, an author only their own while it is Draft or Rejected
func superAdminOrEditableByAuthor(a Actor, c *Circular) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return isAuthor(a, c) && c.Status.Editable()
}

var transitions = map[Event]transition{
	EventCreate: {
		roles: []Role{RoleCreator, RoleAdmin, RoleSuperAdmin},
	},
	EventEdit: {
		permit: superAdminOrEditableByAuthor,
		denied: "only the author can edit a draft or rejected circular",
	},
	EventSubmit: {
		from:   []State{StateDraft, StateRejected},
		permit: isAuthor,
		denied: "only the author can submit a circular",
	},
	EventAdminReview: {
		roles:  []Role{RoleAdmin},
		from:   []State{StatePendingAdmin},
		permit: isAssignedReviewer,
		denied: "circular is not assigned to you",
	},
	EventSuperAdminReview: {
		roles: []Role{RoleSuperAdmin},
		from:  []State{StatePendingSuperAdmin},
	},
	EventHigherReview: {
		from:   []State{StatePendingHigherApproval},
		permit: isListedApprover,
		denied: "you are not an approver for this circular",
	},
	EventResolveMeeting: {
		roles: []Role{RoleSuperAdmin},
		from:  []State{StatePendingHigherApproval},
	},
	EventDelete: {
		permit: superAdminOrEditableByAuthor,
		denied: "only the author can delete a draft or rejected circular",
	},
}

// authorize evaluates the transition table for an event. c may be nil for
// events that do not act on an existing record
func authorize(event Event, actor Actor, c *Circular) error {
	t, ok := transitions[event]
	if !ok {
		return NewError(KindInternal, "unknown event %q", event)
	}
	if len(t.roles) > 0 && !slices.Contains(t.roles, actor.Role) {
		return NewError(
			KindForbidden,
			"role %q cannot perform %s",
			actor.Role,
			event,
		)
	}
	if c == nil {
		return nil
	}
	if len(t.from) > 0 && !slices.Contains(t.from, c.Status) {
		return NewError(
			KindInvalidState,
			"cannot %s a circular in status %q",
			event,
			c.Status,
		)
	}
	if t.permit != nil && !t.permit(actor, c) {
		return NewError(KindForbidden, "%s", t.denied)
	}
	return nil
}
