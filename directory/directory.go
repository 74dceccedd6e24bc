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

// Package directory manages user accounts and signatory authorities, the
// reference data the workflow reads but never changes
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/blinklabs-io/circulard/workflow"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// UserRecord is a stored user account
type UserRecord struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         workflow.Role `json:"role"`
	Department   string        `json:"department,omitempty"`
	ManagedBy    string        `json:"managedBy,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// User returns the routing view of the record
func (u *UserRecord) User() workflow.User {
	return workflow.User{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		ManagedBy: u.ManagedBy,
	}
}

// CheckPassword reports whether password matches the stored hash
func (u *UserRecord) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type Authority struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists users and authorities. CreateUserRecord must fail with a
// Conflict error when the email is already taken
type Store interface {
	GetUserRecord(ctx context.Context, id string) (*UserRecord, error)
	GetUserRecordByEmail(ctx context.Context, email string) (*UserRecord, error)
	ListUserRecords(ctx context.Context, filter UserFilter) ([]UserRecord, error)
	CreateUserRecord(ctx context.Context, u *UserRecord) error
	DeleteUserRecord(ctx context.Context, id string) error
	ListAuthorities(ctx context.Context) ([]Authority, error)
	GetAuthority(ctx context.Context, id string) (*Authority, error)
	CreateAuthority(ctx context.Context, a *Authority) error
	DeleteAuthority(ctx context.Context, id string) error
}

// UserFilter narrows ListUserRecords. Empty fields match everything
type UserFilter struct {
	ManagedBy string
	Role      workflow.Role
}

// NewUser is the input for creating an account
type NewUser struct {
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Password   string        `json:"password"`
	Role       workflow.Role `json:"role"`
	Department string        `json:"department,omitempty"`
	// ManagedBy lets a Super Admin place a Creator or Viewer under an Admin
	ManagedBy string `json:"managedBy,omitempty"`
}

type Directory struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

type DirectoryOptionFunc func(*Directory)

func WithLogger(logger *slog.Logger) DirectoryOptionFunc {
	return func(d *Directory) {
		d.logger = logger
	}
}

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) DirectoryOptionFunc {
	return func(d *Directory) {
		d.cost = cost
	}
}

func New(store Store, opts ...DirectoryOptionFunc) *Directory {
	d := &Directory{
		store: store,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	d.logger = d.logger.With("component", "directory")
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	if d.cost == 0 {
		d.cost = bcrypt.DefaultCost
	}
	return d
}

func requireManager(actor workflow.Actor) error {
	if actor.Role != workflow.RoleAdmin && actor.Role != workflow.RoleSuperAdmin {
		return workflow.NewError(
			workflow.KindForbidden,
			"admin or super admin role required",
		)
	}
	return nil
}

// CreateUser provisions an account on behalf of an Admin or the Super Admin.
// Admins may only create Creators and Viewers, who are then managed by them
func (d *Directory) CreateUser(
	ctx context.Context,
	actor workflow.Actor,
	req NewUser,
) (*UserRecord, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if actor.Role == workflow.RoleAdmin {
		switch req.Role {
		case workflow.RoleCreator, workflow.RoleViewer:
		default:
			return nil, workflow.NewError(
				workflow.KindForbidden,
				"admins can only create circular creators or viewers",
			)
		}
	}
	// Creators and Viewers made by an Admin report to that Admin. The Super
	// Admin may place them under an Admin, otherwise they stay unmanaged and
	// submit straight to the Super Admin
	managedBy := ""
	if req.Role == workflow.RoleCreator || req.Role == workflow.RoleViewer {
		if actor.Role == workflow.RoleAdmin {
			managedBy = actor.ID
		} else if req.ManagedBy != "" {
			manager, err := d.store.GetUserRecord(ctx, req.ManagedBy)
			if err != nil {
				if errors.Is(err, workflow.ErrNotFound) {
					return nil, workflow.NewError(workflow.KindInvalidInput, "manager %s does not exist", req.ManagedBy)
				}
				return nil, err
			}
			if manager.Role != workflow.RoleAdmin {
				return nil, workflow.NewError(workflow.KindInvalidInput, "manager must be an admin")
			}
			managedBy = manager.ID
		}
	}
	u, err := d.create(ctx, req, managedBy)
	if err != nil {
		return nil, err
	}
	d.logger.Info(
		"user created",
		"user", u.ID,
		"role", u.Role,
		"by", actor.ID,
	)
	return u, nil
}

// Provision creates an account without an acting user. It is meant for
// bootstrapping, typically the Super Admin, from the command line
func (d *Directory) Provision(
	ctx context.Context,
	req NewUser,
) (*UserRecord, error) {
	managedBy := ""
	if req.ManagedBy != "" {
		manager, err := d.store.GetUserRecord(ctx, req.ManagedBy)
		if err != nil {
			return nil, fmt.Errorf("look up manager: %w", err)
		}
		managedBy = manager.ID
	}
	return d.create(ctx, req, managedBy)
}

func (d *Directory) create(
	ctx context.Context,
	req NewUser,
	managedBy string,
) (*UserRecord, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, workflow.NewError(workflow.KindInvalidInput, "name, email and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, workflow.NewError(workflow.KindInvalidInput, "invalid email address %q", req.Email)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, workflow.NewError(
			workflow.KindInvalidInput,
			"password must be at least %d characters",
			MinPasswordLength,
		)
	}
	if !req.Role.Valid() {
		return nil, workflow.NewError(workflow.KindInvalidInput, "invalid role %q", req.Role)
	}
	if req.Role == workflow.RoleSuperAdmin {
		existing, err := d.store.ListUserRecords(ctx, UserFilter{Role: workflow.RoleSuperAdmin})
		if err != nil {
			return nil, fmt.Errorf("look up super admin: %w", err)
		}
		if len(existing) > 0 {
			return nil, workflow.NewError(workflow.KindConflict, "a super admin already exists")
		}
	}
	if _, err := d.store.GetUserRecordByEmail(ctx, req.Email); err == nil {
		return nil, workflow.NewError(workflow.KindConflict, "user with this email already exists")
	} else if !errors.Is(err, workflow.ErrNotFound) {
		return nil, fmt.Errorf("look up email: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &UserRecord{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Department:   strings.TrimSpace(req.Department),
		ManagedBy:    managedBy,
		CreatedAt:    d.now(),
	}
	if err := d.store.CreateUserRecord(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user to the Super Admin and the managed users to an
// Admin. A non-empty role narrows the result
func (d *Directory) ListUsers(
	ctx context.Context,
	actor workflow.Actor,
	role workflow.Role,
) ([]UserRecord, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, workflow.NewError(workflow.KindInvalidInput, "invalid role %q", role)
	}
	filter := UserFilter{Role: role}
	if actor.Role == workflow.RoleAdmin {
		filter.ManagedBy = actor.ID
	}
	return d.store.ListUserRecords(ctx, filter)
}

// Me returns the actor's own account
func (d *Directory) Me(ctx context.Context, actor workflow.Actor) (*UserRecord, error) {
	return d.store.GetUserRecord(ctx, actor.ID)
}

// DeleteUser removes an account. Nobody may delete themselves and an Admin
// may only delete users they manage
func (d *Directory) DeleteUser(
	ctx context.Context,
	actor workflow.Actor,
	id string,
) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	u, err := d.store.GetUserRecord(ctx, id)
	if err != nil {
		return err
	}
	if u.ID == actor.ID {
		return workflow.NewError(workflow.KindInvalidInput, "you cannot delete your own account")
	}
	if actor.Role == workflow.RoleAdmin && u.ManagedBy != actor.ID {
		return workflow.NewError(workflow.KindForbidden, "you do not have permission to delete this user")
	}
	if err := d.store.DeleteUserRecord(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	d.logger.Info("user deleted", "user", id, "by", actor.ID)
	return nil
}

// ListAuthorities returns all signatory authorities
func (d *Directory) ListAuthorities(ctx context.Context) ([]Authority, error) {
	return d.store.ListAuthorities(ctx)
}

func (d *Directory) CreateAuthority(
	ctx context.Context,
	actor workflow.Actor,
	name string,
	position string,
) (*Authority, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	position = strings.TrimSpace(position)
	if name == "" || position == "" {
		return nil, workflow.NewError(workflow.KindInvalidInput, "name and position are required")
	}
	a := &Authority{
		ID:        uuid.NewString(),
		Name:      name,
		Position:  position,
		CreatedAt: d.now(),
	}
	if err := d.store.CreateAuthority(ctx, a); err != nil {
		return nil, fmt.Errorf("create authority: %w", err)
	}
	return a, nil
}

func (d *Directory) DeleteAuthority(
	ctx context.Context,
	actor workflow.Actor,
	id string,
) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if _, err := d.store.GetAuthority(ctx, id); err != nil {
		return err
	}
	return d.store.DeleteAuthority(ctx, id)
}
