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
	"fmt"
	"slices"
)

// filterForRole returns the query that selects the circulars a role works with
func filterForRole(actor Actor) (Filter, error) {
	switch actor.Role {
	case RoleSuperAdmin:
		return Filter{}, nil
	case RoleAdmin:
		return Filter{Author: actor.ID, SubmittedTo: actor.ID}, nil
	case RoleCreator:
		return Filter{Author: actor.ID}, nil
	case RoleApprover:
		return Filter{Approver: actor.ID}, nil
	case RoleViewer:
		return Filter{Status: StatePublished}, nil
	default:
		return Filter{}, NewError(KindForbidden, "unknown role %q", actor.Role)
	}
}

// ListForRole returns the circulars visible to the actor, newest first
func (e *Engine) ListForRole(ctx context.Context, actor Actor) ([]Circular, error) {
	filter, err := filterForRole(actor)
	if err != nil {
		return nil, err
	}
	ret, err := e.store.QueryCirculars(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query circulars: %w", err)
	}
	slices.SortStableFunc(ret, func(a, b Circular) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return ret, nil
}

// ListAll is the Super Admin overview of every circular
func (e *Engine) ListAll(ctx context.Context, actor Actor) ([]Circular, error) {
	if actor.Role != RoleSuperAdmin {
		return nil, NewError(KindForbidden, "super admin role required")
	}
	return e.ListForRole(ctx, actor)
}

func canView(actor Actor, c *Circular) bool {
	switch {
	case actor.Role == RoleSuperAdmin:
		return true
	case c.Status == StatePublished:
		return true
	case isAuthor(actor, c), isAssignedReviewer(actor, c), isListedApprover(actor, c):
		return true
	default:
		return false
	}
}

// Get returns a single circular if the actor may see it
func (e *Engine) Get(ctx context.Context, actor Actor, id string) (*Circular, error) {
	c, err := e.store.GetCircular(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, c) {
		return nil, NewError(KindForbidden, "you cannot view this circular")
	}
	return c, nil
}
