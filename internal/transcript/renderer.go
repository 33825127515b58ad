// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"strings"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/session"
)

// Renderer applies controller events to a Surface.
type Renderer struct {
	surface Surface

	// atLineStart is false when the last text did not end in a newline
	atLineStart bool
}

// NewRenderer creates a renderer writing to surface.
func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface, atLineStart: true}
}

// Surface returns the display the renderer writes to.
func (r *Renderer) Surface() Surface {
	return r.surface
}

// Apply writes the text for one event.
func (r *Renderer) Apply(ev session.Event) {
	switch ev.Kind {
	case session.EventUserMessage:
		r.writeMessage(model.NewUserMessage(ev.Text))
	case session.EventStart:
		r.append(model.RoleAssistant.DisplayName()+":\n", TagAI)
	case session.EventToken:
		r.append(ev.Text, TagAI)
	case session.EventError:
		if !r.atLineStart {
			r.append("\n", TagAI)
		}
		r.append(ErrorText(ev), TagError)
	case session.EventEnd:
		r.append("\n\n", TagAI)
	}
}

// Replay clears the surface and writes each message whole.
func (r *Renderer) Replay(messages []model.Message) {
	r.Clear()
	for _, msg := range messages {
		r.writeMessage(msg)
	}
}

// Clear empties the surface.
func (r *Renderer) Clear() {
	r.surface.Clear()
	r.atLineStart = true
}

// Info writes a one-line notice.
func (r *Renderer) Info(text string) {
	if !r.atLineStart {
		r.append("\n", TagInfo)
	}
	r.append(text+"\n\n", TagInfo)
}

func (r *Renderer) writeMessage(msg model.Message) {
	tag := TagAI
	if msg.Role == model.RoleUser {
		tag = TagUser
	}
	r.append(msg.Role.DisplayName()+":\n", tag)
	r.append(msg.Content+"\n\n", tag)
}

func (r *Renderer) append(text string, tag Tag) {
	if text == "" {
		return
	}
	r.surface.Append(text, tag)
	r.atLineStart = strings.HasSuffix(text, "\n")
}

// ErrorText formats a failed cycle for the transcript.
func ErrorText(ev session.Event) string {
	if ev.Canceled {
		return "[cancelled]"
	}
	if ev.Err == nil {
		return "[error]"
	}
	return "[error: " + ev.Err.Error() + "]"
}
