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
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/blinklabs-io/circulard/database/plugin"
	"github.com/blinklabs-io/circulard/internal/config"
	"github.com/blinklabs-io/circulard/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "circulard"

	// listPluginsValue passed to --blob or --metadata prints the registered
	// plugins of that type instead of running a command
	listPluginsValue = "list"
)

var rootFlags struct {
	debug      bool
	configFile string
	blob       string
	metadata   string
}

var pluginHeadings = map[plugin.PluginType]string{
	plugin.PluginTypeBlob:     "Blob storage plugins",
	plugin.PluginTypeMetadata: "Metadata storage plugins",
}

// commonRun installs the process logger and adjusts GOMAXPROCS. Logs go to
// stderr so that command output on stdout stays clean
func commonRun() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if rootFlags.debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
	maxprocsLogger := func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", programName)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(maxprocsLogger)); err != nil {
		logger.Error("failed to set GOMAXPROCS", "error", err)
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// writePlugins prints the registered plugins of each type, one table per type
func writePlugins(w io.Writer, pluginTypes ...plugin.PluginType) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, pluginType := range pluginTypes {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s:\n", pluginHeadings[pluginType])
		for _, p := range plugin.GetPlugins(pluginType) {
			fmt.Fprintf(tw, "  %s\t%s\n", p.Name, p.Description)
		}
	}
	return tw.Flush()
}

// requestedListings returns the plugin types whose selection flag asks for a
// listing
func requestedListings() []plugin.PluginType {
	var ret []plugin.PluginType
	if rootFlags.blob == listPluginsValue {
		ret = append(ret, plugin.PluginTypeBlob)
	}
	if rootFlags.metadata == listPluginsValue {
		ret = append(ret, plugin.PluginTypeMetadata)
	}
	return ret
}

// loadConfig runs before every subcommand. It loads the config file and
// environment, applies the plugin selection flags and stores the result in
// the command context
func loadConfig(cmd *cobra.Command, _ []string) error {
	if listings := requestedListings(); len(listings) > 0 {
		if err := writePlugins(cmd.OutOrStdout(), listings...); err != nil {
			return err
		}
		os.Exit(0)
	}
	cfg, err := config.LoadConfig(rootFlags.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("blob") {
		cfg.BlobPlugin = rootFlags.blob
	}
	if flags.Changed("metadata") {
		cfg.MetadataPlugin = rootFlags.metadata
	}
	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}

// configOrExit returns the config stored by loadConfig
func configOrExit(cmd *cobra.Command) *config.Config {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		slog.Error("no config found in context")
		os.Exit(1)
	}
	return cfg
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), programName+" "+version.GetVersionString())
		},
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all available plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writePlugins(
				cmd.OutOrStdout(),
				plugin.PluginTypeBlob,
				plugin.PluginTypeMetadata,
			)
		},
	}
}

func newRootCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:               programName,
		Short:             "Circular approval portal",
		PersistentPreRunE: loadConfig,
		Run: func(cmd *cobra.Command, args []string) {
			serveRun(cmd, args, configOrExit(cmd))
		},
	}
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&rootFlags.debug, "debug", "D", false, "enable debug logging")
	flags.StringVar(&rootFlags.configFile, "config", "", "path to config file")
	flags.StringVarP(
		&rootFlags.blob,
		"blob", "b",
		config.DefaultBlobPlugin,
		"blob store plugin to use, '"+listPluginsValue+"' to show available",
	)
	flags.StringVarP(
		&rootFlags.metadata,
		"metadata", "m",
		config.DefaultMetadataPlugin,
		"metadata store plugin to use, '"+listPluginsValue+"' to show available",
	)
	if err := plugin.PopulateCmdlineOptions(flags); err != nil {
		return nil, fmt.Errorf("add plugin flags: %w", err)
	}
	cmd.AddCommand(
		serveCommand(),
		userCommand(),
		publishCommand(),
		archiveCommand(),
		listCommand(),
		versionCommand(),
	)
	return cmd, nil
}

func main() {
	rootCmd, err := newRootCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// cobra prints the error itself
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
