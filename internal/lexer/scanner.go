// Package lexer implements the character-level scanner backing the FTL
// parser. FTL's grammar is whitespace- and column-significant (pattern
// continuation lines must be indented strictly deeper than their entry's
// base indent), so the scanner exposes a rune cursor with line/column
// tracking rather than producing a flat pre-tokenized stream: the parser
// drives it directly, mirroring how a Fluent grammar is actually shaped
// rather than forcing it through a one-token-at-a-time pipeline.
package lexer

import (
	"unicode/utf8"

	"github.com/opal-lang/fluentcore/internal/token"
)

// ASCII classification tables, indexed by byte value. FTL identifiers and
// punctuation are always ASCII even though pattern text is not.
var (
	isIdentStart [128]bool
	isIdentPart  [128]bool
	isDigit      [128]bool
	isHexDigit   [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentPart[i] = isIdentStart[i] || isDigit[i] || ch == '_' || ch == '-'
		isHexDigit[i] = isDigit[i] || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
	}
}

// IsIdentStart reports whether b can start an FTL identifier.
func IsIdentStart(b byte) bool { return int(b) < 128 && isIdentStart[b] }

// IsIdentPart reports whether b can continue an FTL identifier.
func IsIdentPart(b byte) bool { return int(b) < 128 && isIdentPart[b] }

// IsDigit reports whether b is an ASCII decimal digit.
func IsDigit(b byte) bool { return int(b) < 128 && isDigit[b] }

// IsHexDigit reports whether b is an ASCII hex digit.
func IsHexDigit(b byte) bool { return int(b) < 128 && isHexDigit[b] }

// Scanner is a rune cursor over normalized (LF-only) FTL source text.
type Scanner struct {
	src    string
	offset int // byte offset of the next unread rune
	line   int
	col    int // rune column, 1-based
}

// New creates a Scanner over src. The caller is responsible for normalizing
// CRLF to LF before construction (see NormalizeNewlines).
func New(src string) *Scanner {
	return &Scanner{src: src, offset: 0, line: 1, col: 1}
}

// NormalizeNewlines converts CRLF and lone CR to LF, per the external
// interface contract that FTL accepts either line ending.
func NormalizeNewlines(src string) string {
	if !containsCR(src) {
		return src
	}
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\r' {
			out = append(out, '\n')
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func containsCR(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' {
			return true
		}
	}
	return false
}

// Pos returns the current cursor position.
func (s *Scanner) Pos() token.Position {
	return token.Position{Line: s.line, Column: s.col, Offset: s.offset}
}

// AtEOF reports whether the cursor has consumed all input.
func (s *Scanner) AtEOF() bool { return s.offset >= len(s.src) }

// PeekByte returns the byte at the cursor without consuming it, or 0 at EOF.
func (s *Scanner) PeekByte() byte {
	if s.offset >= len(s.src) {
		return 0
	}
	return s.src[s.offset]
}

// PeekByteAt returns the byte n bytes ahead of the cursor, or 0 past EOF.
func (s *Scanner) PeekByteAt(n int) byte {
	if s.offset+n >= len(s.src) {
		return 0
	}
	return s.src[s.offset+n]
}

// PeekRune returns the rune at the cursor and its byte width.
func (s *Scanner) PeekRune() (rune, int) {
	if s.offset >= len(s.src) {
		return utf8.RuneError, 0
	}
	r, w := utf8.DecodeRuneInString(s.src[s.offset:])
	return r, w
}

// Advance consumes and returns one rune, updating line/column.
func (s *Scanner) Advance() rune {
	r, w := s.PeekRune()
	if w == 0 {
		return utf8.RuneError
	}
	s.offset += w
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

// AdvanceByte consumes exactly one ASCII byte (used for fast paths over
// known-ASCII punctuation); callers must not use this on multi-byte runes.
func (s *Scanner) AdvanceByte() byte {
	b := s.PeekByte()
	if b == 0 {
		return 0
	}
	s.offset++
	if b == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return b
}

// Slice returns the raw source between two byte offsets.
func (s *Scanner) Slice(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(s.src) {
		to = len(s.src)
	}
	if to < from {
		return ""
	}
	return s.src[from:to]
}

// Offset returns the current byte offset.
func (s *Scanner) Offset() int { return s.offset }

// SeekTo resets the cursor to an absolute byte offset with known line/col;
// used by error recovery to resynchronize after skipping a Junk span.
func (s *Scanner) SeekTo(offset, line, col int) {
	s.offset = offset
	s.line = line
	s.col = col
}

// AtLineStart reports whether the cursor sits at column 1.
func (s *Scanner) AtLineStart() bool { return s.col == 1 }

// ColumnOf computes the rune column that would result from consuming n
// further ASCII space bytes from the current position (used for indent
// measurement without mutating the cursor).
func (s *Scanner) ColumnOf(n int) int { return s.col + n }
