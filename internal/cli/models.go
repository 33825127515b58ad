// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/ui/styles"
	"github.com/jeranaias/ollamachat/internal/util"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the server",
		Long: `List the models installed on the Ollama server.

The configured model, if installed, is marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			infos, err := a.client.ListModelInfo(ctx)
			if err != nil {
				return NewCommandError("models", "list", "cannot reach "+a.cfg.Ollama.URL, err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			return writeModelTable(out, infos, a.cfg.Ollama.Model)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw model list as JSON")
	return cmd
}

// writeModelTable prints one row per model: marker, name, parameter size,
// quantization and disk size.
func writeModelTable(w io.Writer, infos []ollama.ModelInfo, selected string) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No models installed. Run: ollama pull <model>")
		return err
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile())
	header := r.NewStyle().Bold(true).Foreground(styles.TextSecondary)
	marked := r.NewStyle().Bold(true).Foreground(styles.Cyan)

	nameWidth := len("NAME")
	for _, info := range infos {
		nameWidth = max(nameWidth, runewidth.StringWidth(info.Name))
	}
	nameWidth = min(nameWidth, max(GetTerminalWidth()-40, 20))

	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("  %s  %-8s  %-8s  %s", runewidth.FillRight("NAME", nameWidth), "PARAMS", "QUANT", "SIZE")))
	b.WriteByte('\n')

	for _, info := range infos {
		name := runewidth.FillRight(util.TruncateWidth(info.Name, nameWidth), nameWidth)
		row := fmt.Sprintf("%s  %-8s  %-8s  %s", name, info.Details.ParameterSize, info.Details.QuantizationLevel, info.FormatSize())
		if info.Name == selected {
			b.WriteString(marked.Render("* " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}
