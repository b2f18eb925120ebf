package position_test

import (
	"testing"

	"harperls.dev/harper-ls/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestByteToPosition(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   protocol.Position
	}{
		{name: "start", text: "hello", offset: 0, want: pos(0, 0)},
		{name: "end of single line", text: "hello", offset: 5, want: pos(0, 5)},
		{name: "second line", text: "ab\ncd", offset: 4, want: pos(1, 1)},
		{name: "newline ends the line", text: "ab\ncd", offset: 2, want: pos(0, 2)},
		{name: "after trailing newline", text: "ab\n", offset: 3, want: pos(1, 0)},
		{name: "astral rune is two columns", text: "a😀b", offset: 5, want: pos(0, 3)},
		{name: "inside astral rune snaps back", text: "a😀b", offset: 3, want: pos(0, 1)},
		{name: "CJK is one column", text: "颜色x", offset: 6, want: pos(0, 2)},
		{name: "negative clamps to start", text: "hello", offset: -4, want: pos(0, 0)},
		{name: "past end clamps", text: "ab\ncd", offset: 99, want: pos(1, 2)},
		{name: "carriage return is not a column", text: "ab\r\ncd", offset: 2, want: pos(0, 2)},
		{name: "between CR and LF clamps to line end", text: "ab\r\ncd", offset: 3, want: pos(0, 2)},
		{name: "after CRLF", text: "ab\r\ncd", offset: 5, want: pos(1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, position.ByteToPosition(tt.text, tt.offset))
		})
	}
}

func TestPositionToByte(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want int
	}{
		{name: "origin", text: "hello", pos: pos(0, 0), want: 0},
		{name: "second line", text: "ab\ncd", pos: pos(1, 1), want: 4},
		{name: "column past line end clamps before newline", text: "ab\ncd", pos: pos(0, 10), want: 2},
		{name: "column past line end clamps before CRLF", text: "ab\r\ncd", pos: pos(0, 10), want: 2},
		{name: "line past end clamps to text end", text: "ab\ncd", pos: pos(7, 0), want: 5},
		{name: "astral rune", text: "a😀b", pos: pos(0, 3), want: 5},
		{name: "inside surrogate pair clamps to rune start", text: "a😀b", pos: pos(0, 2), want: 1},
		{name: "empty text", text: "", pos: pos(3, 3), want: 0},
		{name: "empty last line", text: "ab\n", pos: pos(1, 0), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, position.PositionToByte(tt.text, tt.pos))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	texts := []string{
		"",
		"plain ascii text",
		"Teh cat sat.\nOn the mat.\n",
		"x = 1  # comment with an eror",
		"emoji 😀 and 🎨 mixed\nwith 颜色\n\nblank lines",
		"windows\r\nline\r\nendings\r\n",
		"invalid \xff byte",
		"\n\n\n",
	}

	for _, text := range texts {
		idx := position.NewLineIndex(text)
		for b := 0; b <= len(text); b++ {
			if !position.ValidOffset(text, b) {
				continue
			}
			p := position.ByteToPosition(text, b)
			require.Equal(t, b, position.PositionToByte(text, p), "text %q offset %d position %+v", text, b, p)
			require.Equal(t, p, idx.Position(b))
			require.Equal(t, b, idx.Offset(p))
		}
	}
}

func TestValidOffset(t *testing.T) {
	assert.True(t, position.ValidOffset("a😀b", 1))
	assert.False(t, position.ValidOffset("a😀b", 2))
	assert.True(t, position.ValidOffset("a😀b", 5))
	assert.False(t, position.ValidOffset("a\r\nb", 2))
	assert.False(t, position.ValidOffset("ab", 3))
	assert.False(t, position.ValidOffset("ab", -1))
}

func TestBytePoint(t *testing.T) {
	row, col := position.BytePoint("ab\ncd😀e", 9)
	assert.Equal(t, 1, row)
	assert.Equal(t, 6, col, "tree-sitter columns count bytes")

	row, col = position.BytePoint("ab", 50)
	assert.Equal(t, 0, row)
	assert.Equal(t, 2, col)
}

func TestLineIndexRange(t *testing.T) {
	idx := position.NewLineIndex("one\ntwo three\n")
	assert.Equal(t, 3, idx.LineCount())
	assert.Equal(t, protocol.Range{Start: pos(1, 4), End: pos(1, 9)}, idx.Range(8, 13))
}
