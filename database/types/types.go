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

package types

import "errors"

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrRecordNotFound is returned by metadata operations when a row is missing
var ErrRecordNotFound = errors.New("record not found")

// ErrVersionConflict is returned when a conditional update finds a newer
// version of the row than the caller expected
var ErrVersionConflict = errors.New("record version conflict")

// ErrDuplicateKey is returned when an insert violates a unique index
var ErrDuplicateKey = errors.New("duplicate key")

// CircularFilter selects circulars. Set fields are combined with OR and an
// empty filter matches every row
type CircularFilter struct {
	AuthorID      string
	SubmittedToID string
	ApproverID    string
	Status        string
}

// UserFilter selects users. Set fields are combined with AND
type UserFilter struct {
	ManagedByID string
	Role        string
	IDs         []string
}
