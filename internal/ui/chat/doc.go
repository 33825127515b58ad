// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model for the ollamachat terminal UI.

The screen has a header with the model selector and parameter fields, a
system prompt box, the transcript viewport, the message input, a status line
and a help line.

# Streaming

Sending hands the input text to a session.Controller. The model then listens
for controller events with ListenCmd, applying each one to the transcript and
re-arming the listener, so tokens appear one at a time in arrival order. The
input box is locked from the send until the End event arrives.

# Keys

  - enter: send (alt+enter or ctrl+j inserts a newline)
  - tab / shift+tab: move between input, system prompt, temperature, max tokens
  - ctrl+n / ctrl+b: next / previous model, ctrl+r: reload the model list
  - ctrl+l: clear, ctrl+s: save, ctrl+o: load
  - esc: cancel the running response
  - ctrl+y: copy the last reply
  - ctrl+c: quit
*/
package chat
