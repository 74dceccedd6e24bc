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

// Circular is the stored form of a circular. UpdatedAt is owned by the
// workflow, not by gorm
type Circular struct {
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
	Date            time.Time
	ID              string `gorm:"size:36;primaryKey"`
	Status          string `gorm:"size:32;index"`
	AuthorID        string `gorm:"size:36;index"`
	SubmittedToID   string `gorm:"size:36;index"`
	RejectionReason string
	Type            string
	Subject         string
	Body            string `gorm:"type:text"`
	CircularNumber  string
	AgendaPoints    []string            `gorm:"serializer:json"`
	CopyTo          []string            `gorm:"serializer:json"`
	Approvers       []CircularApprover  `gorm:"foreignKey:CircularID"`
	Signatories     []CircularSignatory `gorm:"foreignKey:CircularID"`
	Version         uint64              `gorm:"not null;default:1"`
}

func (Circular) TableName() string {
	return "circular"
}

// CircularApprover is one higher approver entry. Position keeps the order
// the Super Admin chose
type CircularApprover struct {
	ID         uint   `gorm:"primarykey"`
	CircularID string `gorm:"size:36;index;uniqueIndex:idx_circular_approver_user"`
	UserID     string `gorm:"size:36;index;uniqueIndex:idx_circular_approver_user"`
	Decision   string `gorm:"size:32"`
	Feedback   string
	Position   int
}

func (CircularApprover) TableName() string {
	return "circular_approver"
}

type CircularSignatory struct {
	ID          uint   `gorm:"primarykey"`
	CircularID  string `gorm:"size:36;index"`
	AuthorityID string `gorm:"size:36"`
	SortOrder   int
	Position    int
}

func (CircularSignatory) TableName() string {
	return "circular_signatory"
}
