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
	"errors"
	"log/slog"
	"os"

	"github.com/blinklabs-io/circulard"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/blinklabs-io/circulard/internal/node"
	"github.com/spf13/cobra"
)

func archiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived circulars",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <circular-id>",
			Short: "Print the archived copy of a published circular",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				err := withPortal(configOrExit(cmd), func(p *circulard.Portal) error {
					snap, err := p.Archive().Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snap)
				})
				if err != nil {
					slog.Error(err.Error())
					os.Exit(1)
				}
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List the ids of archived circulars",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				err := withPortal(configOrExit(cmd), func(p *circulard.Portal) error {
					ids, err := p.Archive().List(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), ids)
				})
				if err != nil {
					slog.Error(err.Error())
					os.Exit(1)
				}
			},
		},
	)
	return cmd
}

// withPortal opens the stores, runs fn and stops the portal again
func withPortal(
	cfg *config.Config,
	fn func(*circulard.Portal) error,
) error {
	p, err := node.Open(cfg, commonRun())
	if err != nil {
		return err
	}
	return errors.Join(fn(p), p.Stop())
}
