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

package metadata

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/circulard/database/models"
	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/blinklabs-io/circulard/database/types"
	"gorm.io/gorm"
)

// MetadataStore holds circulars, users and signatory authorities. Lookups of
// missing rows return types.ErrRecordNotFound
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	Ping(context.Context) error

	// Circulars
	GetCircular(context.Context, string) (*models.Circular, error)
	CreateCircular(context.Context, *models.Circular) error
	ReplaceCircular(context.Context, *models.Circular, uint64) error
	DeleteCircular(context.Context, string, uint64) error
	QueryCirculars(context.Context, types.CircularFilter) ([]models.Circular, error)

	// Users
	GetUser(context.Context, string) (*models.User, error)
	GetUserByEmail(context.Context, string) (*models.User, error)
	GetUsers(context.Context, types.UserFilter) ([]models.User, error)
	CreateUser(context.Context, *models.User) error
	DeleteUser(context.Context, string) error

	// Signatory authorities
	GetSignatoryAuthorities(context.Context) ([]models.SignatoryAuthority, error)
	GetSignatoryAuthority(context.Context, string) (*models.SignatoryAuthority, error)
	CreateSignatoryAuthority(context.Context, *models.SignatoryAuthority) error
	DeleteSignatoryAuthority(context.Context, string) error
}

// New starts the named metadata plugin
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
