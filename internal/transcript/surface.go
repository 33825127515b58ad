// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"io"
	"strings"

	"github.com/jeranaias/ollamachat/internal/util"
)

// Tag selects the style of a piece of text.
type Tag int

const (
	TagUser Tag = iota
	TagAI
	TagError
	TagInfo
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagUser:
		return "user"
	case TagAI:
		return "ai"
	case TagError:
		return "error"
	default:
		return "info"
	}
}

// Surface is an append-only text display.
type Surface interface {
	Append(text string, tag Tag)
	Clear()
}

// =============================================================================
// BUFFER
// =============================================================================

// Segment is a run of text sharing one tag.
type Segment struct {
	Text string
	Tag  Tag
}

// Styler decorates text for a tag.
type Styler func(tag Tag, text string) string

// Buffer is an in-memory Surface. Adjacent appends with the same tag are
// merged into one segment.
type Buffer struct {
	segments []Segment
	size     int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds text with the given tag.
func (b *Buffer) Append(text string, tag Tag) {
	if text == "" {
		return
	}
	b.size += len(text)
	if n := len(b.segments); n > 0 && b.segments[n-1].Tag == tag {
		b.segments[n-1].Text += text
		return
	}
	b.segments = append(b.segments, Segment{Text: text, Tag: tag})
}

// Clear removes everything.
func (b *Buffer) Clear() {
	b.segments = nil
	b.size = 0
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	return b.size
}

// Segments returns a copy of the segments.
func (b *Buffer) Segments() []Segment {
	return append([]Segment(nil), b.segments...)
}

// String returns the plain text.
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(b.size)
	for _, seg := range b.segments {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Render returns the text wrapped to width cells (0 = no wrapping) with
// style applied line by line, so escape codes never straddle a newline.
func (b *Buffer) Render(width int, style Styler) string {
	if style == nil && width <= 0 {
		return b.String()
	}
	if style == nil {
		style = func(_ Tag, text string) string { return text }
	}
	var sb strings.Builder
	for _, seg := range b.segments {
		lines := strings.Split(util.WrapText(seg.Text, width), "\n")
		for i, line := range lines {
			if i > 0 {
				sb.WriteByte('\n')
			}
			if line != "" {
				sb.WriteString(style(seg.Tag, line))
			}
		}
	}
	return sb.String()
}

// =============================================================================
// WRITER SURFACE
// =============================================================================

// WriterSurface writes plain text to W. Clear is a no-op. The first write
// error is kept in Err and later writes are skipped.
type WriterSurface struct {
	W   io.Writer
	Err error
}

// Append writes text.
func (w *WriterSurface) Append(text string, _ Tag) {
	if w.Err != nil {
		return
	}
	_, w.Err = io.WriteString(w.W, text)
}

// Clear does nothing; written output cannot be taken back.
func (w *WriterSurface) Clear() {}
