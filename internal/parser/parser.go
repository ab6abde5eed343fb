// Package parser implements a recoverable recursive-descent parser for the
// Fluent Translation List format (spec §4.1). It never fails outright on
// malformed input: unparseable regions become ast.Junk entries carrying
// the diagnostics that explain why, and parsing continues from the next
// entry boundary.
package parser

import (
	"strconv"
	"strings"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/lexer"
	"github.com/opal-lang/fluentcore/internal/token"
)

// Parser holds scanning state for one Parse call. It is not safe for
// concurrent use; construct one per call via Parse.
type Parser struct {
	sc   *lexer.Scanner
	opts Options
	errs []*ast.ParseError

	aborted  bool
	abortErr *ast.ParseError
}

// Parse tokenizes and parses source into a Resource, recovering from
// syntax errors by emitting Junk entries. It never panics on ill-formed
// input (spec §4.1).
func Parse(source string, opts Options) (*ast.Resource, []*ast.ParseError) {
	norm := lexer.NormalizeNewlines(source)
	p := &Parser{sc: lexer.New(norm), opts: opts}

	var entries []ast.Entry
	for {
		p.skipBlankLines()
		if p.sc.AtEOF() {
			break
		}
		if len(entries) >= p.opts.MaxEntriesPerResource {
			pos := p.sc.Pos()
			p.errs = append(p.errs, &ast.ParseError{
				Kind:    ast.LimitExceeded,
				Message: "maximum entries per resource exceeded",
				Span:    ast.Span{Start: pos, End: pos},
			})
			break
		}
		entries = append(entries, p.parseEntry())
	}
	return &ast.Resource{Entries: entries}, p.errs
}

// ParseDefault parses with DefaultOptions.
func ParseDefault(source string) (*ast.Resource, []*ast.ParseError) {
	return Parse(source, DefaultOptions())
}

func (p *Parser) recordError(e *ast.ParseError) {
	p.errs = append(p.errs, e)
}

func (p *Parser) abort(e *ast.ParseError) {
	p.aborted = true
	p.abortErr = e
}

// parseEntry dispatches on the first byte of a column-0 line.
func (p *Parser) parseEntry() ast.Entry {
	start := p.sc.Pos()
	b := p.sc.PeekByte()
	switch {
	case b == '#':
		return p.parseComment()
	case b == '-':
		return p.parseMessageOrTerm(true, start)
	case lexer.IsIdentStart(b):
		return p.parseMessageOrTerm(false, start)
	default:
		return p.parseJunk(start)
	}
}

// --- Comments ---------------------------------------------------------

func (p *Parser) parseComment() ast.Entry {
	start := p.sc.Pos()
	level := p.countHashes()
	if p.sc.PeekByte() == ' ' {
		p.sc.AdvanceByte()
	}
	lines := []string{p.consumeRestOfLineText()}

	for {
		snapshot := *p.sc
		if p.sc.PeekByte() != '\n' {
			break
		}
		p.sc.AdvanceByte()
		cnt := p.countHashes()
		if cnt != level {
			*p.sc = snapshot
			break
		}
		if p.sc.PeekByte() == ' ' {
			p.sc.AdvanceByte()
		}
		lines = append(lines, p.consumeRestOfLineText())
	}

	return &ast.Comment{Level: level, Text: strings.Join(lines, "\n"), Pos: start}
}

func (p *Parser) countHashes() int {
	n := 0
	for p.sc.PeekByte() == '#' && n < 3 {
		p.sc.AdvanceByte()
		n++
	}
	return n
}

func (p *Parser) consumeRestOfLineText() string {
	var b strings.Builder
	for {
		c := p.sc.PeekByte()
		if c == 0 || c == '\n' {
			break
		}
		if c < 0x80 {
			b.WriteByte(c)
			p.sc.AdvanceByte()
		} else {
			r, _ := p.sc.PeekRune()
			b.WriteRune(r)
			p.sc.Advance()
		}
	}
	return b.String()
}

// --- Message / Term -----------------------------------------------------

func (p *Parser) parseMessageOrTerm(isTerm bool, start token.Position) ast.Entry {
	startOffset := p.sc.Offset()

	if isTerm {
		p.sc.AdvanceByte() // '-'
	}
	id, ok := p.scanIdentifier()
	if !ok {
		return p.junkFrom(start, startOffset, &ast.ParseError{
			Kind:    ast.UnexpectedToken,
			Message: "expected identifier",
			Span:    ast.Span{Start: start, End: p.sc.Pos()},
		})
	}
	p.skipInlineSpaces()

	var value *ast.Pattern
	if p.sc.PeekByte() == '=' {
		p.sc.AdvanceByte()
		p.skipInlineSpaces()
		value = p.parsePatternBody(0, startOffset, 0)
	}

	if p.aborted {
		e := p.abortErr
		p.aborted, p.abortErr = false, nil
		return p.junkFrom(start, startOffset, e)
	}

	attrs := p.parseAttributes()

	if p.aborted {
		e := p.abortErr
		p.aborted, p.abortErr = false, nil
		return p.junkFrom(start, startOffset, e)
	}

	if isTerm {
		if value == nil {
			return p.junkFrom(start, startOffset, &ast.ParseError{
				Kind:    ast.UnexpectedToken,
				Message: "term '-" + id + "' has no value",
				Span:    ast.Span{Start: start, End: p.sc.Pos()},
			})
		}
		return &ast.Term{ID: id, Value: value, Attributes: attrs, Pos: start}
	}

	if value == nil && len(attrs) == 0 {
		return p.junkFrom(start, startOffset, &ast.ParseError{
			Kind:    ast.UnexpectedToken,
			Message: "message '" + id + "' has no value or attributes",
			Span:    ast.Span{Start: start, End: p.sc.Pos()},
		})
	}
	return &ast.Message{ID: id, Value: value, Attributes: attrs, Pos: start}
}

func (p *Parser) junkFrom(start token.Position, startOffset int, annotation *ast.ParseError) *ast.Junk {
	p.recoverToEntryBoundary()
	p.errs = append(p.errs, annotation)
	end := p.sc.Pos()
	return &ast.Junk{
		Content:     p.sc.Slice(startOffset, p.sc.Offset()),
		Span:        ast.Span{Start: start, End: end},
		Annotations: []*ast.ParseError{annotation},
	}
}

// recoverToEntryBoundary consumes input until a blank line followed by a
// fresh entry start at column 0, or EOF (spec §4.1 error recovery).
func (p *Parser) recoverToEntryBoundary() {
	p.consumeRestOfLineRaw()
	for {
		if p.sc.AtEOF() {
			return
		}
		if p.sc.PeekByte() != '\n' {
			p.consumeRestOfLineRaw()
			continue
		}
		snapshot := *p.sc
		p.sc.AdvanceByte()
		if p.sc.PeekByte() == '\n' || p.sc.AtEOF() {
			for p.sc.PeekByte() == '\n' {
				p.sc.AdvanceByte()
			}
			nb := p.sc.PeekByte()
			if nb == 0 || lexer.IsIdentStart(nb) || nb == '-' || nb == '#' {
				*p.sc = snapshot
				return
			}
			continue
		}
		p.consumeRestOfLineRaw()
	}
}

func (p *Parser) consumeRestOfLineRaw() {
	for {
		c := p.sc.PeekByte()
		if c == 0 || c == '\n' {
			return
		}
		p.sc.AdvanceByte()
	}
}

// parseJunk handles a line that cannot start any known entry.
func (p *Parser) parseJunk(start token.Position) ast.Entry {
	startOffset := p.sc.Offset()
	return p.junkFrom(start, startOffset, &ast.ParseError{
		Kind:    ast.UnexpectedToken,
		Message: "expected '-', '#', or an identifier",
		Span:    ast.Span{Start: start, End: start},
	})
}

// --- Attributes -----------------------------------------------------------

func (p *Parser) parseAttributes() []ast.Attribute {
	var attrs []ast.Attribute
	for {
		snapshot := *p.sc
		if p.sc.PeekByte() != '\n' {
			break
		}
		p.sc.AdvanceByte()
		indent := 0
		for p.sc.PeekByte() == ' ' {
			p.sc.AdvanceByte()
			indent++
		}
		if indent == 0 || p.sc.PeekByte() != '.' {
			*p.sc = snapshot
			break
		}
		dotPos := p.sc.Pos()
		p.sc.AdvanceByte() // '.'
		id, ok := p.scanIdentifier()
		if !ok {
			*p.sc = snapshot
			break
		}
		p.skipInlineSpaces()
		if p.sc.PeekByte() != '=' {
			*p.sc = snapshot
			break
		}
		p.sc.AdvanceByte()
		p.skipInlineSpaces()
		val := p.parsePatternBody(indent, p.sc.Offset(), 0)
		if p.aborted {
			attrs = append(attrs, ast.Attribute{ID: id, Value: val, Pos: dotPos})
			return attrs
		}
		attrs = append(attrs, ast.Attribute{ID: id, Value: val, Pos: dotPos})
	}
	return attrs
}

// --- Identifiers, numbers -------------------------------------------------

func (p *Parser) scanIdentifier() (string, bool) {
	start := p.sc.Offset()
	if !lexer.IsIdentStart(p.sc.PeekByte()) {
		return "", false
	}
	p.sc.AdvanceByte()
	for lexer.IsIdentPart(p.sc.PeekByte()) {
		p.sc.AdvanceByte()
	}
	return p.sc.Slice(start, p.sc.Offset()), true
}

func (p *Parser) skipInlineSpaces() {
	for p.sc.PeekByte() == ' ' || p.sc.PeekByte() == '\t' {
		p.sc.AdvanceByte()
	}
}

// skipBlankLines advances past any run of whitespace-only lines between
// entries, leaving the cursor at column 0 of the next non-blank line (or
// at EOF).
func (p *Parser) skipBlankLines() {
	for {
		snapshot := *p.sc
		for p.sc.PeekByte() == ' ' || p.sc.PeekByte() == '\t' {
			p.sc.AdvanceByte()
		}
		if p.sc.PeekByte() == '\n' {
			p.sc.AdvanceByte()
			continue
		}
		if p.sc.AtEOF() {
			return
		}
		*p.sc = snapshot
		return
	}
}

func (p *Parser) skipWsAndNewlines() {
	for {
		b := p.sc.PeekByte()
		if b == ' ' || b == '\t' || b == '\n' {
			p.sc.AdvanceByte()
			continue
		}
		break
	}
}

func isUpperFunctionName(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return 'A' <= id[0] && id[0] <= 'Z'
}

func (p *Parser) parseNumberLiteral() *ast.NumberLiteral {
	pos := p.sc.Pos()
	start := p.sc.Offset()
	if p.sc.PeekByte() == '-' {
		p.sc.AdvanceByte()
	}
	for lexer.IsDigit(p.sc.PeekByte()) {
		p.sc.AdvanceByte()
	}
	if p.sc.PeekByte() == '.' && lexer.IsDigit(p.sc.PeekByteAt(1)) {
		p.sc.AdvanceByte()
		for lexer.IsDigit(p.sc.PeekByte()) {
			p.sc.AdvanceByte()
		}
	}
	raw := p.sc.Slice(start, p.sc.Offset())
	v, _ := strconv.ParseFloat(raw, 64)
	return &ast.NumberLiteral{Raw: raw, Value: v, Pos: pos}
}

func (p *Parser) parseStringLiteral() *ast.StringLiteral {
	pos := p.sc.Pos()
	p.sc.AdvanceByte() // opening quote
	var b strings.Builder
	for {
		c := p.sc.PeekByte()
		if c == 0 || c == '\n' {
			p.recordError(&ast.ParseError{Kind: ast.UnclosedBrace, Message: "unterminated string literal", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
			break
		}
		if c == '"' {
			p.sc.AdvanceByte()
			break
		}
		if c == '\\' {
			p.sc.AdvanceByte()
			esc := p.sc.PeekByte()
			switch esc {
			case '\\':
				b.WriteByte('\\')
				p.sc.AdvanceByte()
			case '"':
				b.WriteByte('"')
				p.sc.AdvanceByte()
			case 'u':
				p.sc.AdvanceByte()
				b.WriteRune(p.parseUnicodeEscape(pos))
			default:
				p.recordError(&ast.ParseError{Kind: ast.InvalidEscape, Message: "invalid escape sequence", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
				b.WriteByte('\\')
			}
			continue
		}
		if c < 0x80 {
			b.WriteByte(c)
			p.sc.AdvanceByte()
		} else {
			r, _ := p.sc.PeekRune()
			b.WriteRune(r)
			p.sc.Advance()
		}
	}
	return &ast.StringLiteral{Value: b.String(), Pos: pos}
}

// parseUnicodeEscape parses `{XXXX}` (4-6 hex digits) after `\u` has been
// consumed. Surrogate-pair scalars and code points beyond U+10FFFF are
// scoped ParseErrors (spec §4.1); the literal falls back to U+FFFD.
func (p *Parser) parseUnicodeEscape(litPos token.Position) rune {
	const replacement = 0xFFFD
	if p.sc.PeekByte() != '{' {
		p.recordError(&ast.ParseError{Kind: ast.InvalidEscape, Message: "expected '{' after \\u", Span: ast.Span{Start: litPos, End: p.sc.Pos()}})
		return replacement
	}
	p.sc.AdvanceByte()
	start := p.sc.Offset()
	for lexer.IsHexDigit(p.sc.PeekByte()) {
		p.sc.AdvanceByte()
	}
	hex := p.sc.Slice(start, p.sc.Offset())
	if p.sc.PeekByte() == '}' {
		p.sc.AdvanceByte()
	} else {
		p.recordError(&ast.ParseError{Kind: ast.InvalidEscape, Message: "unterminated unicode escape", Span: ast.Span{Start: litPos, End: p.sc.Pos()}})
	}
	if len(hex) < 4 || len(hex) > 6 {
		p.recordError(&ast.ParseError{Kind: ast.InvalidEscape, Message: "unicode escape must have 4-6 hex digits", Span: ast.Span{Start: litPos, End: p.sc.Pos()}})
		return replacement
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || v > 0x10FFFF || (v >= 0xD800 && v <= 0xDFFF) {
		p.recordError(&ast.ParseError{Kind: ast.InvalidEscape, Message: "unicode escape out of range", Span: ast.Span{Start: litPos, End: p.sc.Pos()}})
		return replacement
	}
	return rune(v)
}
