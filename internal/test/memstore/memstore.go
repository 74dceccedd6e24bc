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

// Package memstore is an in-memory implementation of the circular, user,
// authority and blob stores for tests
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/blinklabs-io/circulard/database/types"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/workflow"
)

type Store struct {
	mu          sync.Mutex
	circulars   map[string]*workflow.Circular
	users       map[string]*directory.UserRecord
	authorities map[string]*directory.Authority
	blobs       map[string][]byte

	// BeforeReplace, when set, runs before every ReplaceCircular with the
	// store unlocked. Tests use it to inject competing writes
	BeforeReplace func(c *workflow.Circular)
	// BeforeDelete does the same for DeleteCircular
	BeforeDelete func(id string)
}

func New() *Store {
	return &Store{
		circulars:   make(map[string]*workflow.Circular),
		users:       make(map[string]*directory.UserRecord),
		authorities: make(map[string]*directory.Authority),
		blobs:       make(map[string][]byte),
	}
}

func notFound(what string, id string) error {
	return workflow.NewError(workflow.KindNotFound, "%s %s not found", what, id)
}

// AddUser stores a user record directly, bypassing provisioning rules
func (s *Store) AddUser(u directory.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// PutCircular stores a circular as-is, bypassing the workflow
func (s *Store) PutCircular(c *workflow.Circular) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.circulars[c.ID] = c.Clone()
}

func (s *Store) GetCircular(_ context.Context, id string) (*workflow.Circular, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.circulars[id]
	if !ok {
		return nil, notFound("circular", id)
	}
	return c.Clone(), nil
}

func (s *Store) CreateCircular(_ context.Context, c *workflow.Circular) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.circulars[c.ID]; ok {
		return workflow.NewError(workflow.KindConflict, "circular %s already exists", c.ID)
	}
	s.circulars[c.ID] = c.Clone()
	return nil
}

func (s *Store) ReplaceCircular(
	_ context.Context,
	c *workflow.Circular,
	expectedVersion uint64,
) error {
	if s.BeforeReplace != nil {
		s.BeforeReplace(c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.circulars[c.ID]
	if !ok {
		return notFound("circular", c.ID)
	}
	if cur.Version != expectedVersion {
		return workflow.ErrStaleRecord
	}
	s.circulars[c.ID] = c.Clone()
	return nil
}

func (s *Store) DeleteCircular(_ context.Context, id string, expectedVersion uint64) error {
	if s.BeforeDelete != nil {
		s.BeforeDelete(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.circulars[id]
	if !ok {
		return notFound("circular", id)
	}
	if cur.Version != expectedVersion {
		return workflow.ErrStaleRecord
	}
	delete(s.circulars, id)
	return nil
}

func (s *Store) QueryCirculars(
	_ context.Context,
	filter workflow.Filter,
) ([]workflow.Circular, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unfiltered := filter == workflow.Filter{}
	ret := []workflow.Circular{}
	for _, c := range s.circulars {
		match := unfiltered ||
			(filter.Author != "" && c.Author == filter.Author) ||
			(filter.SubmittedTo != "" && c.SubmittedTo == filter.SubmittedTo) ||
			(filter.Approver != "" && c.ApproverIndex(filter.Approver) >= 0) ||
			(filter.Status != "" && c.Status == filter.Status)
		if match {
			ret = append(ret, *c.Clone())
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*workflow.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	ret := u.User()
	return &ret, nil
}

func (s *Store) FindUsersByRole(_ context.Context, role workflow.Role) ([]workflow.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := []workflow.User{}
	for _, u := range s.users {
		if u.Role == role {
			ret = append(ret, u.User())
		}
	}
	return ret, nil
}

func (s *Store) FindUsersByIds(_ context.Context, ids []string) ([]workflow.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := []workflow.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			ret = append(ret, u.User())
		}
	}
	return ret, nil
}

func (s *Store) GetUserRecord(_ context.Context, id string) (*directory.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	ret := *u
	return &ret, nil
}

func (s *Store) GetUserRecordByEmail(_ context.Context, email string) (*directory.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			ret := *u
			return &ret, nil
		}
	}
	return nil, notFound("user", email)
}

func (s *Store) ListUserRecords(
	_ context.Context,
	filter directory.UserFilter,
) ([]directory.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := []directory.UserRecord{}
	for _, u := range s.users {
		if filter.ManagedBy != "" && u.ManagedBy != filter.ManagedBy {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		ret = append(ret, *u)
	}
	slices.SortFunc(ret, func(a, b directory.UserRecord) int {
		return strings.Compare(a.Email, b.Email)
	})
	return ret, nil
}

func (s *Store) CreateUserRecord(_ context.Context, u *directory.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return workflow.NewError(workflow.KindConflict, "email %s already in use", u.Email)
		}
	}
	tmp := *u
	s.users[u.ID] = &tmp
	return nil
}

func (s *Store) DeleteUserRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	return nil
}

func (s *Store) ListAuthorities(_ context.Context) ([]directory.Authority, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := []directory.Authority{}
	for _, a := range s.authorities {
		ret = append(ret, *a)
	}
	slices.SortFunc(ret, func(a, b directory.Authority) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret, nil
}

func (s *Store) GetAuthority(_ context.Context, id string) (*directory.Authority, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authorities[id]
	if !ok {
		return nil, notFound("authority", id)
	}
	ret := *a
	return &ret, nil
}

func (s *Store) CreateAuthority(_ context.Context, a *directory.Authority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := *a
	s.authorities[a.ID] = &tmp
	return nil
}

func (s *Store) DeleteAuthority(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorities[id]; !ok {
		return notFound("authority", id)
	}
	delete(s.authorities, id)
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.blobs[key]
	if !ok {
		return nil, types.ErrBlobKeyNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Set(_ context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = slices.Clone(val)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return types.ErrBlobKeyNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := []string{}
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			ret = append(ret, k)
		}
	}
	slices.Sort(ret)
	return ret, nil
}

func (s *Store) Close() error {
	return nil
}
