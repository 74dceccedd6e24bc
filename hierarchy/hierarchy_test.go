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

package hierarchy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/hierarchy"
	"github.com/blinklabs-io/circulard/internal/test/memstore"
	"github.com/blinklabs-io/circulard/workflow"
)

func newStore(users ...directory.UserRecord) *memstore.Store {
	store := memstore.New()
	for _, u := range users {
		store.AddUser(u)
	}
	return store
}

var (
	superAdmin = directory.UserRecord{ID: "sa", Role: workflow.RoleSuperAdmin}
	admin      = directory.UserRecord{ID: "admin", Role: workflow.RoleAdmin}
	approver   = directory.UserRecord{ID: "approver", Role: workflow.RoleApprover}
)

func TestResolveSubmissionTarget(t *testing.T) {
	store := newStore(superAdmin, admin, approver)
	r := hierarchy.New(store)
	testDefs := []struct {
		name   string
		author workflow.User
		target workflow.Target
	}{
		{
			name:   "managed by admin",
			author: workflow.User{ID: "c1", Role: workflow.RoleCreator, ManagedBy: "admin"},
			target: workflow.Target{Status: workflow.StatePendingAdmin, UserID: "admin"},
		},
		{
			name:   "managed by super admin",
			author: workflow.User{ID: "c2", Role: workflow.RoleCreator, ManagedBy: "sa"},
			target: workflow.Target{Status: workflow.StatePendingAdmin, UserID: "sa"},
		},
		{
			name:   "unmanaged",
			author: workflow.User{ID: "a2", Role: workflow.RoleAdmin},
			target: workflow.Target{Status: workflow.StatePendingSuperAdmin, UserID: "sa"},
		},
		{
			name:   "dangling manager",
			author: workflow.User{ID: "c3", Role: workflow.RoleCreator, ManagedBy: "gone"},
			target: workflow.Target{Status: workflow.StatePendingSuperAdmin, UserID: "sa"},
		},
		{
			name:   "manager with another role",
			author: workflow.User{ID: "c4", Role: workflow.RoleCreator, ManagedBy: "approver"},
			target: workflow.Target{Status: workflow.StatePendingAdmin, UserID: "approver"},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			target, err := r.ResolveSubmissionTarget(context.Background(), testDef.author)
			require.NoError(t, err)
			assert.Equal(t, testDef.target, target)
		})
	}
}

func TestSuperAdminConfiguration(t *testing.T) {
	ctx := context.Background()
	author := workflow.User{ID: "a", Role: workflow.RoleAdmin}

	_, err := hierarchy.New(newStore(admin)).ResolveSubmissionTarget(ctx, author)
	require.Error(t, err)
	assert.Equal(t, workflow.KindConfiguration, workflow.KindOf(err))

	second := directory.UserRecord{ID: "sa2", Role: workflow.RoleSuperAdmin}
	_, err = hierarchy.New(newStore(superAdmin, second)).SuperAdmin(ctx)
	require.ErrorIs(t, err, workflow.ErrConfiguration)

	sa, err := hierarchy.New(newStore(superAdmin)).SuperAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sa", sa.ID)
}

func TestManagedByAdminNeedsNoSuperAdmin(t *testing.T) {
	r := hierarchy.New(newStore(admin))
	target, err := r.ResolveSubmissionTarget(
		context.Background(),
		workflow.User{ID: "c", Role: workflow.RoleCreator, ManagedBy: "admin"},
	)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingAdmin, target.Status)
}

type brokenDirectory struct {
	workflow.UserDirectory
}

func (brokenDirectory) GetUser(context.Context, string) (*workflow.User, error) {
	return nil, errors.New("connection refused")
}

func TestLookupFailureIsNotRerouted(t *testing.T) {
	r := hierarchy.New(brokenDirectory{newStore(superAdmin)})
	_, err := r.ResolveSubmissionTarget(
		context.Background(),
		workflow.User{ID: "c", Role: workflow.RoleCreator, ManagedBy: "admin"},
	)
	require.Error(t, err)
	assert.Equal(t, workflow.KindInternal, workflow.KindOf(err))
}
