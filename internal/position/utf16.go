// Package position converts between Go byte offsets and LSP positions.
//
// LSP positions are (line, character) pairs where character counts UTF-16
// code units, while Go strings are UTF-8 byte sequences. Every conversion
// clamps rather than fails: editors may send positions past the last synced
// version while an edit is in flight.
package position

import (
	"math"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// UTF16ToByteOffset converts a UTF-16 code unit offset within a single line
// to a byte offset. Characters above U+FFFF count as 2 UTF-16 units; a target
// inside such a surrogate pair clamps to the start of the rune.
func UTF16ToByteOffset(s string, utf16Col int) int {
	if utf16Col <= 0 {
		return 0
	}

	units := 0
	byteOffset := 0

	for byteOffset < len(s) && units < utf16Col {
		r, size := utf8.DecodeRuneInString(s[byteOffset:])
		n := runeUnits(r, size)
		if n == 2 && units+1 == utf16Col {
			break
		}
		units += n
		byteOffset += size
	}

	return byteOffset
}

// ByteOffsetToUTF16 converts a byte offset within a single line to a UTF-16
// code unit offset. An offset inside a multi-byte rune counts only the runes
// that end at or before it.
func ByteOffsetToUTF16(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}

	units := 0
	current := 0
	for current < byteOffset {
		r, size := utf8.DecodeRuneInString(s[current:])
		if current+size > byteOffset {
			break
		}
		units += runeUnits(r, size)
		current += size
	}
	return units
}

// StringLengthUTF16 returns the length of a string in UTF-16 code units.
func StringLengthUTF16(s string) int {
	return ByteOffsetToUTF16(s, len(s))
}

// runeBoundary returns the largest decode boundary of s that is <= offset.
func runeBoundary(s string, offset int) int {
	current := 0
	for current < offset {
		_, size := utf8.DecodeRuneInString(s[current:])
		if current+size > offset {
			break
		}
		current += size
	}
	return current
}

// runeUnits reports how many UTF-16 units a decoded rune occupies.
// Invalid bytes decode as (RuneError, 1) and count as a single unit.
func runeUnits(r rune, size int) int {
	if r == utf8.RuneError && size <= 1 {
		return 1
	}
	return utf16.RuneLen(r)
}

// uinteger clamps an int into the protocol's unsigned 32-bit range.
func uinteger(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return protocol.UInteger(n)
}
