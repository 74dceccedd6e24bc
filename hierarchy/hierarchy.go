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

// Package hierarchy decides who reviews a submitted circular, based on the
// author's manager and the single Super Admin account
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/circulard/workflow"
)

// Resolver implements workflow.Resolver on top of a user directory. Nothing is
// cached, so role or manager changes apply to the next submission
type Resolver struct {
	users  workflow.UserDirectory
	logger *slog.Logger
}

type ResolverOptionFunc func(*Resolver)

func WithLogger(logger *slog.Logger) ResolverOptionFunc {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(users workflow.UserDirectory, opts ...ResolverOptionFunc) *Resolver {
	r := &Resolver{
		users: users,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "hierarchy")
	return r
}

// SuperAdmin returns the only Super Admin. Zero or several are a
// configuration error
func (r *Resolver) SuperAdmin(ctx context.Context) (workflow.User, error) {
	superAdmins, err := r.users.FindUsersByRole(ctx, workflow.RoleSuperAdmin)
	if err != nil {
		return workflow.User{}, fmt.Errorf("look up super admin: %w", err)
	}
	switch len(superAdmins) {
	case 0:
		return workflow.User{}, workflow.NewError(
			workflow.KindConfiguration,
			"no super admin account exists",
		)
	case 1:
		return superAdmins[0], nil
	default:
		return workflow.User{}, workflow.NewError(
			workflow.KindConfiguration,
			"found %d super admin accounts, expected exactly one",
			len(superAdmins),
		)
	}
}

// ResolveSubmissionTarget routes a submission to the author's manager, or to
// the Super Admin when the author has no manager or the manager no longer
// exists
func (r *Resolver) ResolveSubmissionTarget(
	ctx context.Context,
	author workflow.User,
) (workflow.Target, error) {
	if author.ManagedBy != "" {
		manager, err := r.users.GetUser(ctx, author.ManagedBy)
		switch {
		case err == nil:
			return workflow.Target{
				Status: workflow.StatePendingAdmin,
				UserID: manager.ID,
			}, nil
		case errors.Is(err, workflow.ErrNotFound):
			r.logger.Warn(
				"author references a missing manager",
				"author", author.ID,
				"manager", author.ManagedBy,
			)
		default:
			return workflow.Target{}, fmt.Errorf("look up manager: %w", err)
		}
	}
	superAdmin, err := r.SuperAdmin(ctx)
	if err != nil {
		return workflow.Target{}, err
	}
	return workflow.Target{
		Status: workflow.StatePendingSuperAdmin,
		UserID: superAdmin.ID,
	}, nil
}
