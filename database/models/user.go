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

package models

import "time"

type User struct {
	CreatedAt    time.Time
	ID           string `gorm:"size:36;primaryKey"`
	Name         string
	Email        string `gorm:"size:255;uniqueIndex"`
	PasswordHash string
	Role         string `gorm:"size:32;index"`
	Department   string
	ManagedByID  string `gorm:"size:36;index"`
}

func (User) TableName() string {
	return "portal_user"
}

type SignatoryAuthority struct {
	CreatedAt time.Time
	ID        string `gorm:"size:36;primaryKey"`
	Name      string
	Position  string
}

func (SignatoryAuthority) TableName() string {
	return "signatory_authority"
}
