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

// Package gormstore implements the metadata queries shared by every SQL
// backed metadata plugin
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/circulard/database/models"
	"github.com/blinklabs-io/circulard/database/types"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Store struct {
	db *gorm.DB
}

// GormConfig returns the gorm settings used by all metadata plugins
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// New enables tracing on db and migrates the schema
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("enable tracing: %w", err)
	}
	for _, model := range models.MigrateModels {
		logger.Debug(fmt.Sprintf("creating table: %T", model))
		if err := db.AutoMigrate(model); err != nil {
			return nil, fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return types.ErrDuplicateKey
	default:
		return err
	}
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (s *Store) preloadCircular(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Approvers", orderByPosition).
		Preload("Signatories", orderByPosition)
}

func (s *Store) GetCircular(ctx context.Context, id string) (*models.Circular, error) {
	var ret models.Circular
	result := s.preloadCircular(ctx).First(&ret, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &ret, nil
}

func (s *Store) CreateCircular(ctx context.Context, c *models.Circular) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Omit("Approvers", "Signatories").Create(c); result.Error != nil {
			return translate(result.Error)
		}
		return createChildren(tx, c)
	})
}

// ReplaceCircular overwrites a circular and its child rows if the stored
// version still equals expectedVersion
func (s *Store) ReplaceCircular(
	ctx context.Context,
	c *models.Circular,
	expectedVersion uint64,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(c).
			Where("version = ?", expectedVersion).
			Select("*").
			Omit("CreatedAt", "Approvers", "Signatories").
			Updates(c)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, c.ID)
		}
		if err := deleteChildren(tx, c.ID); err != nil {
			return err
		}
		return createChildren(tx, c)
	})
}

// DeleteCircular removes a circular and its child rows if the stored version
// still equals expectedVersion. The version check runs as a no-op update so
// that the row stays locked until the children are gone
func (s *Store) DeleteCircular(ctx context.Context, id string, expectedVersion uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Circular{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			UpdateColumn("version", gorm.Expr("version"))
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, id)
		}
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		result = tx.Where("id = ? AND version = ?", id, expectedVersion).Delete(&models.Circular{})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, id)
		}
		return nil
	})
}

// missingOrConflict explains a conditional write that matched no rows
func missingOrConflict(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Circular{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return types.ErrRecordNotFound
	}
	return types.ErrVersionConflict
}

func (s *Store) QueryCirculars(
	ctx context.Context,
	filter types.CircularFilter,
) ([]models.Circular, error) {
	var cond *gorm.DB
	or := func(query string, args ...any) {
		if cond == nil {
			cond = s.db.Where(query, args...)
			return
		}
		cond = cond.Or(query, args...)
	}
	if filter.AuthorID != "" {
		or("author_id = ?", filter.AuthorID)
	}
	if filter.SubmittedToID != "" {
		or("submitted_to_id = ?", filter.SubmittedToID)
	}
	if filter.ApproverID != "" {
		or(
			"id IN (?)",
			s.db.Model(&models.CircularApprover{}).
				Select("circular_id").
				Where("user_id = ?", filter.ApproverID),
		)
	}
	if filter.Status != "" {
		or("status = ?", filter.Status)
	}
	query := s.preloadCircular(ctx).Order("created_at DESC")
	if cond != nil {
		query = query.Where(cond)
	}
	var ret []models.Circular
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func deleteChildren(tx *gorm.DB, circularID string) error {
	if err := tx.Where("circular_id = ?", circularID).Delete(&models.CircularApprover{}).Error; err != nil {
		return err
	}
	return tx.Where("circular_id = ?", circularID).Delete(&models.CircularSignatory{}).Error
}

func createChildren(tx *gorm.DB, c *models.Circular) error {
	for i := range c.Approvers {
		c.Approvers[i].ID = 0
		c.Approvers[i].CircularID = c.ID
		c.Approvers[i].Position = i
	}
	for i := range c.Signatories {
		c.Signatories[i].ID = 0
		c.Signatories[i].CircularID = c.ID
		c.Signatories[i].Position = i
	}
	if len(c.Approvers) > 0 {
		if err := tx.Create(&c.Approvers).Error; err != nil {
			return translate(err)
		}
	}
	if len(c.Signatories) > 0 {
		if err := tx.Create(&c.Signatories).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}
