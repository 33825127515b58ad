// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/session"
	"github.com/jeranaias/ollamachat/internal/transcript"
)

// MaxPromptFileSize bounds --file and piped input.
const MaxPromptFileSize = 1 << 20

type askOptions struct {
	system      string
	temperature string
	maxTokens   string
	file        string
	transcript  bool
	stats       bool
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	ask := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and stream the reply",
		Long: `Send one message and stream the reply to stdout.

The message comes from the arguments, from --file, or from stdin when it is
not a terminal.

Examples:
  ollamachat ask "What is the capital of France?"
  ollamachat ask --system "Answer in one word" "Capital of France?"
  ollamachat ask -f prompt.md --temperature 0.7
  git diff | ollamachat ask --max-tokens 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, ask, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ask.system, "system", "s", "", "System prompt (overrides config)")
	f.StringVarP(&ask.temperature, "temperature", "t", "", "Sampling temperature between 0 and 1")
	f.StringVar(&ask.maxTokens, "max-tokens", "", "Maximum tokens to generate")
	f.StringVarP(&ask.file, "file", "f", "", "Read the message from a file")
	f.BoolVar(&ask.transcript, "transcript", false, "Print the exchange with You:/AI: labels")
	f.BoolVar(&ask.stats, "stats", false, "Print timing and token counts to stderr")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *rootOptions, ask *askOptions, args []string) error {
	text, err := readMessage(cmd, ask.file, args)
	if err != nil {
		return err
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	modelName, err := a.resolveModel(ctx)
	if err != nil {
		return err
	}

	temperature := ask.temperature
	if !cmd.Flags().Changed("temperature") {
		temperature = strconv.FormatFloat(a.cfg.Chat.Temperature, 'f', -1, 64)
	}
	maxTokens := ask.maxTokens
	if !cmd.Flags().Changed("max-tokens") {
		maxTokens = strconv.Itoa(a.cfg.Chat.MaxTokens)
	}
	params, err := model.NewRequestParameters(modelName, temperature, maxTokens)
	if err != nil {
		return &ValidationError{Field: "model", Value: modelName, Reason: err.Error()}
	}

	conv := model.NewConversation()
	system := a.cfg.Chat.SystemPrompt
	if cmd.Flags().Changed("system") {
		system = ask.system
	}
	conv.SetSystemPrompt(strings.TrimSpace(system))

	ctrl := a.newController(conv)
	defer ctrl.Close()

	if err := ctrl.Send(text, params); err != nil {
		return NewCommandError("ask", "send", "request rejected", err)
	}

	end, err := streamReply(ctx, ctrl, cmd.OutOrStdout(), ask.transcript)
	if err != nil {
		return NewCommandError("ask", "write", "cannot write reply", err)
	}

	if ask.stats && end.Stats != nil {
		s := end.Stats
		name := params.Model
		if s.Model != "" {
			name = s.Model
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d chunks, %d prompt tokens, %d completion tokens, %.1f tok/s, %s\n",
			name, s.Chunks, s.PromptTokens, s.CompletionTokens, s.TokensPerSecond, s.Duration.Round(time.Millisecond))
	}

	if end.Failed() {
		if end.Canceled {
			return NewCommandError("ask", "stream", "cancelled", end.Err)
		}
		return NewCommandError("ask", "stream", "reply failed", end.Err)
	}
	return nil
}

// streamReply writes the cycle's events to w until End. With labels set the
// output uses the transcript format; otherwise only the reply text is
// written. Cancelling ctx cancels the cycle.
func streamReply(ctx context.Context, ctrl *session.Controller, w io.Writer, labels bool) (session.Event, error) {
	surface := &transcript.WriterSurface{W: w}
	renderer := transcript.NewRenderer(surface)

	done := ctx.Done()
	wroteText := false
	for {
		select {
		case <-done:
			ctrl.Cancel()
			done = nil

		case ev := <-ctrl.Events():
			switch {
			case labels:
				renderer.Apply(ev)
			case ev.Kind == session.EventToken:
				surface.Append(ev.Text, transcript.TagAI)
				wroteText = true
			case ev.Kind == session.EventEnd && wroteText:
				surface.Append("\n", transcript.TagAI)
			}

			if ev.Kind == session.EventEnd {
				ctrl.WaitCycle(ev.CycleID)
				return ev, surface.Err
			}
		}
	}
}

// readMessage returns the message from --file, the arguments or piped stdin,
// in that order.
func readMessage(cmd *cobra.Command, file string, args []string) (string, error) {
	var text string
	switch {
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return "", NewCommandError("ask", "read", "cannot open message file", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxPromptFileSize))
		if err != nil {
			return "", NewCommandError("ask", "read", "cannot read message file", err)
		}
		text = string(data)
		if len(args) > 0 {
			text = strings.Join(args, " ") + "\n\n" + text
		}

	case len(args) > 0:
		text = strings.Join(args, " ")

	case stdinPiped(cmd):
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), MaxPromptFileSize))
		if err != nil {
			return "", NewCommandError("ask", "read", "cannot read stdin", err)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrMissingArgument("message", `ollamachat ask "What is Go?"`)
	}
	return text, nil
}

// stdinPiped reports whether the command's input is something other than an
// interactive terminal.
func stdinPiped(cmd *cobra.Command) bool {
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return true
}
