package position

import (
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LineIndex caches the line starts of one text so that many offsets can be
// converted without rescanning. It is immutable and safe to share.
//
// Only '\n' starts a new line. A '\r' directly before '\n' is part of the
// line terminator and never occupies a column.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (x *LineIndex) LineCount() int {
	return len(x.starts)
}

// lineContent returns the byte range of a line without its terminator.
func (x *LineIndex) lineContent(line int) (start, end int) {
	start = x.starts[line]
	if line+1 < len(x.starts) {
		end = x.starts[line+1] - 1
		if end > start && x.text[end-1] == '\r' {
			end--
		}
	} else {
		end = len(x.text)
	}
	return start, end
}

// Position converts a byte offset to a protocol position.
func (x *LineIndex) Position(offset int) protocol.Position {
	offset = min(max(offset, 0), len(x.text))

	line := sort.SearchInts(x.starts, offset+1) - 1
	start, end := x.lineContent(line)
	offset = min(offset, end)

	return protocol.Position{
		Line:      uinteger(line),
		Character: uinteger(ByteOffsetToUTF16(x.text[start:end], offset-start)),
	}
}

// Offset converts a protocol position to a byte offset.
func (x *LineIndex) Offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(x.starts) {
		return len(x.text)
	}
	start, end := x.lineContent(line)
	return start + UTF16ToByteOffset(x.text[start:end], int(pos.Character))
}

// Range converts a half-open byte range to a protocol range.
func (x *LineIndex) Range(start, end int) protocol.Range {
	return protocol.Range{Start: x.Position(start), End: x.Position(end)}
}

// Point returns the tree-sitter point (row, byte column) of a byte offset.
func (x *LineIndex) Point(offset int) (row, column int) {
	offset = min(max(offset, 0), len(x.text))
	line := sort.SearchInts(x.starts, offset+1) - 1
	return line, offset - x.starts[line]
}

// ByteToPosition converts a byte offset in text to a protocol position.
// Offsets outside the text clamp to its ends; an offset inside a rune
// snaps back to the rune start.
func ByteToPosition(text string, offset int) protocol.Position {
	return NewLineIndex(text).Position(offset)
}

// PositionToByte converts a protocol position to a byte offset in text.
// Lines past the end clamp to len(text); characters past the end of a line
// clamp to the end of that line's content.
func PositionToByte(text string, pos protocol.Position) int {
	return NewLineIndex(text).Offset(pos)
}

// BytePoint returns the tree-sitter point (row, byte column) of a byte offset.
func BytePoint(text string, offset int) (row, column int) {
	return NewLineIndex(text).Point(offset)
}

// ValidOffset reports whether offset is a boundary that survives a round
// trip through ByteToPosition and PositionToByte.
func ValidOffset(text string, offset int) bool {
	if offset < 0 || offset > len(text) {
		return false
	}
	if offset > 0 && offset < len(text) && text[offset] == '\n' && text[offset-1] == '\r' {
		return false
	}
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return runeBoundary(text[lineStart:], offset-lineStart) == offset-lineStart
}
