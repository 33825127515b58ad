// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import tea "github.com/charmbracelet/bubbletea"

// EventMsg delivers one controller Event to a Bubble Tea program.
type EventMsg struct {
	Event Event
}

// ListenCmd waits for the next event. The program re-issues it after each
// EventMsg, so events reach Update one at a time and in order. Before an
// EventEnd is delivered the cycle that emitted it has released the guard,
// so Send can be called straight from the handler.
func (c *Controller) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-c.events:
			if ev.Kind == EventEnd {
				c.WaitCycle(ev.CycleID)
			}
			return EventMsg{Event: ev}
		case <-c.quit:
			return nil
		}
	}
}
