// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	url        string
	model      string
	logLevel   string
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the chat screen.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ollamachat",
		Short: "Terminal chat client for a local Ollama server",
		Long: `ollamachat streams chat replies from a local Ollama server.

Examples:
  ollamachat                          Start the chat screen
  ollamachat -m llama3:8b             Start with a specific model
  ollamachat ask "What is Go?"        Ask one question and print the reply
  echo "Summarise this" | ollamachat ask
  ollamachat models                   List installed models
  ollamachat sessions                 List saved conversations`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (default ~/.ollamachat/config.toml)")
	pf.StringVar(&opts.url, "url", "", "Ollama base URL (overrides config)")
	pf.StringVarP(&opts.model, "model", "m", "", "Model to use (overrides config)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newTUICommand(opts),
		newAskCommand(opts),
		newModelsCommand(opts),
		newSessionsCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		DisplayError(os.Stderr, err)
		return ExitCode(err)
	}
	return ExitSuccess
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ollamachat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return err
		},
	}
}
