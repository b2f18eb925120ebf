package position

import protocol "github.com/tliron/glsp/protocol_3_16"

// Compare orders two positions: -1 if a is before b, 0 if equal, 1 if after.
func Compare(a, b protocol.Position) int {
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Character < b.Character:
		return -1
	case a.Character > b.Character:
		return 1
	}
	return 0
}

// RangeContains reports whether p lies within r, both ends included, so a
// cursor placed directly after a word still hits it.
func RangeContains(r protocol.Range, p protocol.Position) bool {
	return Compare(r.Start, p) <= 0 && Compare(p, r.End) <= 0
}

// RangesIntersect checks if two LSP ranges intersect.
// Non-empty ranges are half-open, so [0:0, 0:5) and [0:5, 0:10) do not
// intersect. An empty range (a cursor) intersects any range containing it.
func RangesIntersect(a, b protocol.Range) bool {
	if a.Start == a.End {
		return RangeContains(b, a.Start)
	}
	if b.Start == b.End {
		return RangeContains(a, b.Start)
	}
	return Compare(a.Start, b.End) < 0 && Compare(b.Start, a.End) < 0
}
