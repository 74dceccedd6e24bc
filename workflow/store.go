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

import "context"

// Filter selects circulars in QueryCirculars. Empty fields match everything;
// set fields are combined with OR so that a single query can return both the
// circulars a user wrote and the ones waiting on them
type Filter struct {
	Author      string
	SubmittedTo string
	Approver    string
	Status      State
}

// CircularStore persists circulars. ReplaceCircular and DeleteCircular must
// only succeed when the stored version equals expectedVersion, and must return
// ErrStaleRecord otherwise
type CircularStore interface {
	GetCircular(ctx context.Context, id string) (*Circular, error)
	CreateCircular(ctx context.Context, c *Circular) error
	ReplaceCircular(ctx context.Context, c *Circular, expectedVersion uint64) error
	DeleteCircular(ctx context.Context, id string, expectedVersion uint64) error
	QueryCirculars(ctx context.Context, filter Filter) ([]Circular, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*User, error)
	FindUsersByRole(ctx context.Context, role Role) ([]User, error)
	FindUsersByIds(ctx context.Context, ids []string) ([]User, error)
}

// Target is where a submitted circular is routed
type Target struct {
	Status State
	UserID string
}

type Resolver interface {
	ResolveSubmissionTarget(ctx context.Context, author User) (Target, error)
	SuperAdmin(ctx context.Context) (User, error)
}
