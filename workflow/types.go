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
	"fmt"
	"slices"
	"time"
)

// State is the lifecycle state of a circular
type State string

const (
	StateDraft                 State = "Draft"
	StatePendingAdmin          State = "Pending Admin"
	StatePendingSuperAdmin     State = "Pending Super Admin"
	StatePendingHigherApproval State = "Pending Higher Approval"
	StateApproved              State = "Approved"
	StateRejected              State = "Rejected"
	StatePublished             State = "Published"
)

func (s State) Valid() bool {
	switch s {
	case StateDraft,
		StatePendingAdmin,
		StatePendingSuperAdmin,
		StatePendingHigherApproval,
		StateApproved,
		StateRejected,
		StatePublished:
		return true
	default:
		return false
	}
}

// Editable reports whether the author may still change or remove the circular
func (s State) Editable() bool {
	return s == StateDraft || s == StateRejected
}

type Role string

const (
	RoleSuperAdmin Role = "Super Admin"
	RoleAdmin      Role = "Admin"
	RoleCreator    Role = "Circular Creator"
	RoleApprover   Role = "Circular Approver"
	RoleViewer     Role = "Circular Viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleCreator, RoleApprover, RoleViewer:
		return true
	default:
		return false
	}
}

// Decision is a higher approver's verdict on a circular
type Decision string

const (
	DecisionPending        Decision = "Pending"
	DecisionApproved       Decision = "Approved"
	DecisionRejected       Decision = "Rejected"
	DecisionRequestMeeting Decision = "Request Meeting"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected, DecisionRequestMeeting:
		return true
	default:
		return false
	}
}

type AdminDecision string

const (
	AdminForward AdminDecision = "Forward"
	AdminReject  AdminDecision = "Reject"
)

func (d AdminDecision) Valid() bool {
	return d == AdminForward || d == AdminReject
}

type SuperAdminDecision string

const (
	SuperAdminApprove SuperAdminDecision = "Approve"
	SuperAdminReject  SuperAdminDecision = "Reject"
)

func (d SuperAdminDecision) Valid() bool {
	return d == SuperAdminApprove || d == SuperAdminReject
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// User is the subset of a directory entry the workflow needs for routing
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      Role   `json:"role"`
	ManagedBy string `json:"managedBy,omitempty"`
}

type Approver struct {
	User     string   `json:"user"`
	Decision Decision `json:"decision"`
	Feedback string   `json:"feedback"`
}

type Signatory struct {
	Authority string `json:"authority"`
	Order     int    `json:"order"`
}

// Content holds the document fields of a circular. The workflow only checks
// that the required ones are present
type Content struct {
	Type           string      `json:"type"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	CircularNumber string      `json:"circularNumber"`
	Date           Date        `json:"date"`
	AgendaPoints   []string    `json:"agendaPoints"`
	CopyTo         []string    `json:"copyTo"`
	Signatories    []Signatory `json:"signatories"`
}

type Circular struct {
	ID              string     `json:"id"`
	Status          State      `json:"status"`
	Author          string     `json:"author"`
	SubmittedTo     string     `json:"submittedTo,omitempty"`
	Approvers       []Approver `json:"approvers"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Content
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so that a loaded record can be mutated without
// touching the caller's value
func (c *Circular) Clone() *Circular {
	ret := *c
	ret.Approvers = slices.Clone(c.Approvers)
	ret.AgendaPoints = slices.Clone(c.AgendaPoints)
	ret.CopyTo = slices.Clone(c.CopyTo)
	ret.Signatories = slices.Clone(c.Signatories)
	return &ret
}

// ApproverIndex returns the position of the user's approver entry, or -1
func (c *Circular) ApproverIndex(userID string) int {
	return slices.IndexFunc(c.Approvers, func(a Approver) bool {
		return a.User == userID
	})
}

func (c *Circular) pendingApprovers() int {
	count := 0
	for _, a := range c.Approvers {
		if a.Decision == DecisionPending {
			count++
		}
	}
	return count
}

// MeetingRequested reports whether every higher approver has answered and at
// least one asked for a meeting without anyone rejecting
func (c *Circular) MeetingRequested() bool {
	if c.Status != StatePendingHigherApproval || len(c.Approvers) == 0 {
		return false
	}
	meeting := false
	for _, a := range c.Approvers {
		switch a.Decision {
		case DecisionPending, DecisionRejected:
			return false
		case DecisionRequestMeeting:
			meeting = true
		}
	}
	return meeting
}

// CheckInvariants verifies that exactly one party owns the next move
func (c *Circular) CheckInvariants() error {
	if !c.Status.Valid() {
		return fmt.Errorf("unknown status %q", c.Status)
	}
	if c.RejectionReason != "" && c.Status != StateRejected {
		return fmt.Errorf("rejection reason set while %s", c.Status)
	}
	pending := c.pendingApprovers()
	switch c.Status {
	case StatePendingAdmin, StatePendingSuperAdmin:
		if c.SubmittedTo == "" {
			return fmt.Errorf("%s circular has no reviewer", c.Status)
		}
		if len(c.Approvers) > 0 {
			return fmt.Errorf("%s circular has approvers", c.Status)
		}
	case StatePendingHigherApproval:
		if c.SubmittedTo != "" {
			return fmt.Errorf("%s circular has a single reviewer", c.Status)
		}
		if len(c.Approvers) == 0 {
			return fmt.Errorf("%s circular has no approvers", c.Status)
		}
	default:
		if c.SubmittedTo != "" {
			return fmt.Errorf("%s circular has a reviewer", c.Status)
		}
		if pending > 0 {
			return fmt.Errorf("%s circular has pending approvers", c.Status)
		}
	}
	return nil
}
