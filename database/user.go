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

package database

import (
	"context"
	"strings"

	"github.com/blinklabs-io/circulard/database/models"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/workflow"
)

func userRecordFromModel(m *models.User) directory.UserRecord {
	return directory.UserRecord{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         workflow.Role(m.Role),
		Department:   m.Department,
		ManagedBy:    m.ManagedByID,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func userRecordToModel(u *directory.UserRecord) *models.User {
	return &models.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Department:   u.Department,
		ManagedByID:  u.ManagedBy,
		CreatedAt:    u.CreatedAt,
	}
}

func (d *Database) users(ctx context.Context, filter types.UserFilter) ([]workflow.User, error) {
	rows, err := d.metadata.GetUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	ret := make([]workflow.User, 0, len(rows))
	for i := range rows {
		u := userRecordFromModel(&rows[i])
		ret = append(ret, u.User())
	}
	return ret, nil
}

// GetUser returns the routing view of a user
func (d *Database) GetUser(ctx context.Context, id string) (*workflow.User, error) {
	m, err := d.metadata.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", id)
	}
	u := userRecordFromModel(m)
	ret := u.User()
	return &ret, nil
}

func (d *Database) FindUsersByRole(ctx context.Context, role workflow.Role) ([]workflow.User, error) {
	return d.users(ctx, types.UserFilter{Role: string(role)})
}

// FindUsersByIds returns the users that exist among ids. Unknown ids are skipped
func (d *Database) FindUsersByIds(ctx context.Context, ids []string) ([]workflow.User, error) {
	if ids == nil {
		ids = []string{}
	}
	return d.users(ctx, types.UserFilter{IDs: ids})
}

func (d *Database) GetUserRecord(ctx context.Context, id string) (*directory.UserRecord, error) {
	m, err := d.metadata.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", id)
	}
	ret := userRecordFromModel(m)
	return &ret, nil
}

func (d *Database) GetUserRecordByEmail(ctx context.Context, email string) (*directory.UserRecord, error) {
	m, err := d.metadata.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, storeError(err, "user", email)
	}
	ret := userRecordFromModel(m)
	return &ret, nil
}

func (d *Database) ListUserRecords(
	ctx context.Context,
	filter directory.UserFilter,
) ([]directory.UserRecord, error) {
	rows, err := d.metadata.GetUsers(ctx, types.UserFilter{
		ManagedByID: filter.ManagedBy,
		Role:        string(filter.Role),
	})
	if err != nil {
		return nil, err
	}
	ret := make([]directory.UserRecord, 0, len(rows))
	for i := range rows {
		ret = append(ret, userRecordFromModel(&rows[i]))
	}
	return ret, nil
}

// CreateUserRecord fails with a Conflict error when the email is taken
func (d *Database) CreateUserRecord(ctx context.Context, u *directory.UserRecord) error {
	err := d.metadata.CreateUser(ctx, userRecordToModel(u))
	if err != nil {
		return storeError(err, "user with email", u.Email)
	}
	return nil
}

func (d *Database) DeleteUserRecord(ctx context.Context, id string) error {
	return storeError(d.metadata.DeleteUser(ctx, id), "user", id)
}

func authorityFromModel(m *models.SignatoryAuthority) directory.Authority {
	return directory.Authority{
		ID:        m.ID,
		Name:      m.Name,
		Position:  m.Position,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (d *Database) ListAuthorities(ctx context.Context) ([]directory.Authority, error) {
	rows, err := d.metadata.GetSignatoryAuthorities(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]directory.Authority, 0, len(rows))
	for i := range rows {
		ret = append(ret, authorityFromModel(&rows[i]))
	}
	return ret, nil
}

func (d *Database) GetAuthority(ctx context.Context, id string) (*directory.Authority, error) {
	m, err := d.metadata.GetSignatoryAuthority(ctx, id)
	if err != nil {
		return nil, storeError(err, "authority", id)
	}
	ret := authorityFromModel(m)
	return &ret, nil
}

func (d *Database) CreateAuthority(ctx context.Context, a *directory.Authority) error {
	return storeError(
		d.metadata.CreateSignatoryAuthority(ctx, &models.SignatoryAuthority{
			ID:        a.ID,
			Name:      a.Name,
			Position:  a.Position,
			CreatedAt: a.CreatedAt,
		}),
		"authority",
		a.ID,
	)
}

func (d *Database) DeleteAuthority(ctx context.Context, id string) error {
	return storeError(d.metadata.DeleteSignatoryAuthority(ctx, id), "authority", id)
}
