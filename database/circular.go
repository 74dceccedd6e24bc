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
	"errors"

	"github.com/blinklabs-io/circulard/database/models"
	"github.com/blinklabs-io/circulard/database/types"
	"github.com/blinklabs-io/circulard/workflow"
)

// storeError maps storage errors onto workflow error kinds
func storeError(err error, what string, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrRecordNotFound):
		return workflow.NewError(workflow.KindNotFound, "%s %s not found", what, id)
	case errors.Is(err, types.ErrVersionConflict):
		return workflow.ErrStaleRecord
	case errors.Is(err, types.ErrDuplicateKey):
		return workflow.NewError(workflow.KindConflict, "%s %s already exists", what, id)
	default:
		return err
	}
}

func circularToModel(c *workflow.Circular) *models.Circular {
	ret := &models.Circular{
		ID:              c.ID,
		Status:          string(c.Status),
		AuthorID:        c.Author,
		SubmittedToID:   c.SubmittedTo,
		RejectionReason: c.RejectionReason,
		Type:            c.Type,
		Subject:         c.Subject,
		Body:            c.Body,
		CircularNumber:  c.CircularNumber,
		Date:            c.Date.Time,
		AgendaPoints:    c.AgendaPoints,
		CopyTo:          c.CopyTo,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	for _, a := range c.Approvers {
		ret.Approvers = append(ret.Approvers, models.CircularApprover{
			UserID:   a.User,
			Decision: string(a.Decision),
			Feedback: a.Feedback,
		})
	}
	for _, s := range c.Signatories {
		ret.Signatories = append(ret.Signatories, models.CircularSignatory{
			AuthorityID: s.Authority,
			SortOrder:   s.Order,
		})
	}
	return ret
}

func circularFromModel(m *models.Circular) *workflow.Circular {
	ret := &workflow.Circular{
		ID:              m.ID,
		Status:          workflow.State(m.Status),
		Author:          m.AuthorID,
		SubmittedTo:     m.SubmittedToID,
		RejectionReason: m.RejectionReason,
		Approvers:       make([]workflow.Approver, 0, len(m.Approvers)),
		Content: workflow.Content{
			Type:           m.Type,
			Subject:        m.Subject,
			Body:           m.Body,
			CircularNumber: m.CircularNumber,
			Date:           workflow.Date{Time: m.Date.UTC()},
			AgendaPoints:   m.AgendaPoints,
			CopyTo:         m.CopyTo,
			Signatories:    make([]workflow.Signatory, 0, len(m.Signatories)),
		},
		Version:   m.Version,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if ret.AgendaPoints == nil {
		ret.AgendaPoints = []string{}
	}
	if ret.CopyTo == nil {
		ret.CopyTo = []string{}
	}
	for _, a := range m.Approvers {
		ret.Approvers = append(ret.Approvers, workflow.Approver{
			User:     a.UserID,
			Decision: workflow.Decision(a.Decision),
			Feedback: a.Feedback,
		})
	}
	for _, s := range m.Signatories {
		ret.Signatories = append(ret.Signatories, workflow.Signatory{
			Authority: s.AuthorityID,
			Order:     s.SortOrder,
		})
	}
	return ret
}

func (d *Database) GetCircular(ctx context.Context, id string) (*workflow.Circular, error) {
	m, err := d.metadata.GetCircular(ctx, id)
	if err != nil {
		return nil, storeError(err, "circular", id)
	}
	return circularFromModel(m), nil
}

func (d *Database) CreateCircular(ctx context.Context, c *workflow.Circular) error {
	return storeError(d.metadata.CreateCircular(ctx, circularToModel(c)), "circular", c.ID)
}

// ReplaceCircular stores c if the stored version still equals expectedVersion
func (d *Database) ReplaceCircular(
	ctx context.Context,
	c *workflow.Circular,
	expectedVersion uint64,
) error {
	return storeError(
		d.metadata.ReplaceCircular(ctx, circularToModel(c), expectedVersion),
		"circular",
		c.ID,
	)
}

// DeleteCircular removes a circular if the stored version still equals
// expectedVersion
func (d *Database) DeleteCircular(
	ctx context.Context,
	id string,
	expectedVersion uint64,
) error {
	return storeError(
		d.metadata.DeleteCircular(ctx, id, expectedVersion),
		"circular",
		id,
	)
}

func (d *Database) QueryCirculars(
	ctx context.Context,
	filter workflow.Filter,
) ([]workflow.Circular, error) {
	rows, err := d.metadata.QueryCirculars(ctx, types.CircularFilter{
		AuthorID:      filter.Author,
		SubmittedToID: filter.SubmittedTo,
		ApproverID:    filter.Approver,
		Status:        string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	ret := make([]workflow.Circular, 0, len(rows))
	for i := range rows {
		ret = append(ret, *circularFromModel(&rows[i]))
	}
	return ret, nil
}
