// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ui/chat"
	"github.com/jeranaias/ollamachat/internal/ui/styles"
)

func newTUICommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive chat screen",
		Long: `Start the interactive chat screen.

Keys:
  enter               Send the message
  alt+enter, ctrl+j   Insert a newline
  tab, shift+tab      Move between input, system prompt, temperature, max tokens
  ctrl+n, ctrl+b      Next / previous model
  ctrl+s, ctrl+o      Save / load the conversation
  esc                 Cancel the reply in progress
  f1                  Show all keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.newStore()
	if err != nil {
		return err
	}

	conv := model.NewConversation()
	conv.SetSystemPrompt(a.cfg.Chat.SystemPrompt)
	ctrl := a.newController(conv)
	defer ctrl.Close()

	m := chat.New(chat.Options{
		Controller: ctrl,
		Models:     a.client,
		Store:      store,
		Theme:      styles.NewTheme(),
		Config:     a.cfg,
		Logger:     a.log,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return NewCommandError("tui", "run", "terminal program failed", err)
	}
	return nil
}
