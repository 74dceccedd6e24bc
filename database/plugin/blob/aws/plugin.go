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

package aws

import (
	"github.com/blinklabs-io/circulard/database/plugin"
)

var cmdlineOptions struct {
	location string
	region   string
	endpoint string
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "AWS S3 or S3 compatible bucket",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:        "url",
					Type:        plugin.PluginOptionTypeString,
					Description: "archive location as s3://<bucket>[/prefix]",
					Dest:        &cmdlineOptions.location,
				},
				{
					Name:        "region",
					Type:        plugin.PluginOptionTypeString,
					Description: "AWS region, overrides the shared config",
					Dest:        &cmdlineOptions.region,
				},
				{
					Name:        "endpoint",
					Type:        plugin.PluginOptionTypeString,
					Description: "endpoint of an S3 compatible server such as minio",
					Dest:        &cmdlineOptions.endpoint,
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	store, err := NewFromURL(
		cmdlineOptions.location,
		plugin.DefaultLogger(),
		plugin.DefaultPromRegistry(),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	WithRegion(cmdlineOptions.region)(store)
	WithEndpoint(cmdlineOptions.endpoint)(store)
	return store
}
