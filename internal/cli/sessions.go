// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamachat/internal/storage"
	"github.com/jeranaias/ollamachat/internal/transcript"
)

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [name]",
		Short: "List saved conversations or print one",
		Long: `List the conversations saved from the chat screen, newest first.

With a name, print that conversation in transcript form. Names are resolved
against the sessions directory; the .json extension is optional.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.newStore()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return listSessions(cmd.OutOrStdout(), store)
			}
			return showSession(cmd.OutOrStdout(), store, args[0])
		},
	}
}

func listSessions(w io.Writer, store *storage.SessionStore) error {
	metas, err := store.List()
	if err != nil {
		return NewCommandError("sessions", "list", "cannot read "+store.BaseDir, err)
	}
	if len(metas) == 0 {
		_, err := fmt.Fprintf(w, "No saved sessions in %s\n", store.BaseDir)
		return err
	}

	nameWidth := 4
	for _, meta := range metas {
		nameWidth = max(nameWidth, runewidth.StringWidth(meta.Name))
	}
	for _, meta := range metas {
		if _, err := fmt.Fprintf(w, "%s  %s  %6s\n",
			runewidth.FillRight(meta.Name, nameWidth),
			meta.UpdatedAt.Format("2006-01-02 15:04"),
			formatBytes(meta.Size)); err != nil {
			return err
		}
	}
	return nil
}

func showSession(w io.Writer, store *storage.SessionStore, name string) error {
	path := name
	if filepath.Ext(name) == "" {
		path = name + storage.DefaultExtension
	}

	doc, err := store.Load(path)
	if err != nil {
		return NewCommandError("sessions", "show", "cannot load "+name, err)
	}

	surface := &transcript.WriterSurface{W: w}
	r := transcript.NewRenderer(surface)
	if doc.SystemPrompt != "" {
		r.Info("System: " + doc.SystemPrompt)
	}
	// Replay's Clear is a no-op on a writer
	r.Replay(doc.Conversation)
	return surface.Err
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
