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

package gcs

import (
	"github.com/blinklabs-io/circulard/database/plugin"
)

var cmdlineOptions struct {
	location        string
	credentialsFile string
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage bucket",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:        "url",
					Type:        plugin.PluginOptionTypeString,
					Description: "archive location as gcs://<bucket>[/prefix]",
					Dest:        &cmdlineOptions.location,
				},
				{
					Name:         "credentials-file",
					Type:         plugin.PluginOptionTypeString,
					Description:  "service account key file, application default credentials when empty",
					CustomEnvVar: "GOOGLE_APPLICATION_CREDENTIALS",
					Dest:         &cmdlineOptions.credentialsFile,
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
	WithCredentialsFile(cmdlineOptions.credentialsFile)(store)
	return store
}
