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
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/circulard"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userAddFlags = struct {
	name       string
	email      string
	role       string
	department string
	managedBy  string
}{}

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage portal accounts",
	}
	cmd.AddCommand(userAddCommand())
	return cmd
}

func userAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Provision an account without an acting user, e.g. the super admin",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := userAddRun(cmd, configOrExit(cmd)); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&userAddFlags.name, "name", "", "display name")
	cmd.Flags().StringVar(&userAddFlags.email, "email", "", "login email address")
	cmd.Flags().StringVar(
		&userAddFlags.role,
		"role",
		string(workflow.RoleSuperAdmin),
		"account role",
	)
	cmd.Flags().StringVar(&userAddFlags.department, "department", "", "department")
	cmd.Flags().StringVar(&userAddFlags.managedBy, "managed-by", "", "id of the managing admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userAddRun(cmd *cobra.Command, cfg *config.Config) error {
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return withPortal(cfg, func(p *circulard.Portal) error {
		u, err := p.Directory().Provision(
			cmd.Context(),
			directory.NewUser{
				Name:       userAddFlags.name,
				Email:      userAddFlags.email,
				Password:   password,
				Role:       workflow.Role(userAddFlags.role),
				Department: userAddFlags.department,
				ManagedBy:  userAddFlags.managedBy,
			},
		)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	})
}

// readPassword prompts on a terminal without echo and otherwise reads the
// first line of input
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
