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

package gormstore

import (
	"context"

	"github.com/blinklabs-io/circulard/database/models"
	"github.com/blinklabs-io/circulard/database/types"
)

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var ret models.User
	if result := s.db.WithContext(ctx).First(&ret, "id = ?", id); result.Error != nil {
		return nil, translate(result.Error)
	}
	return &ret, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var ret models.User
	if result := s.db.WithContext(ctx).First(&ret, "email = ?", email); result.Error != nil {
		return nil, translate(result.Error)
	}
	return &ret, nil
}

func (s *Store) GetUsers(ctx context.Context, filter types.UserFilter) ([]models.User, error) {
	query := s.db.WithContext(ctx).Order("email")
	if filter.ManagedByID != "" {
		query = query.Where("managed_by_id = ?", filter.ManagedByID)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.User{}, nil
		}
		query = query.Where("id IN ?", filter.IDs)
	}
	var ret []models.User
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetSignatoryAuthorities(ctx context.Context) ([]models.SignatoryAuthority, error) {
	var ret []models.SignatoryAuthority
	if result := s.db.WithContext(ctx).Order("name").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) GetSignatoryAuthority(ctx context.Context, id string) (*models.SignatoryAuthority, error) {
	var ret models.SignatoryAuthority
	if result := s.db.WithContext(ctx).First(&ret, "id = ?", id); result.Error != nil {
		return nil, translate(result.Error)
	}
	return &ret, nil
}

func (s *Store) CreateSignatoryAuthority(ctx context.Context, a *models.SignatoryAuthority) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) DeleteSignatoryAuthority(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SignatoryAuthority{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}
