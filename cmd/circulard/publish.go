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

package main

import (
	"log/slog"
	"os"

	"github.com/blinklabs-io/circulard"
	"github.com/blinklabs-io/circulard/hierarchy"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/spf13/cobra"
)

func publishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <circular-id>",
		Short: "Archive an approved circular and mark it published",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := publishRun(cmd, args[0], configOrExit(cmd)); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}

func publishRun(cmd *cobra.Command, id string, cfg *config.Config) error {
	return withPortal(cfg, func(p *circulard.Portal) error {
		ctx := cmd.Context()
		// Publishing from the command line is recorded against the super admin
		sa, err := hierarchy.New(p.Database()).SuperAdmin(ctx)
		if err != nil {
			return err
		}
		c, err := p.Archive().Publish(ctx, id, sa.ID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	})
}
