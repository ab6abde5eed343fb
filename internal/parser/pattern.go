package parser

import (
	"strings"

	"github.com/opal-lang/fluentcore/internal/ast"
)

// parsePatternBody parses a Pattern whose first line begins at the current
// cursor (immediately after `=` or a variant's `]`) and whose continuation
// lines must be indented strictly deeper than baseIndent (spec §4.1
// "Pattern text continues across lines when the continuation is indented
// strictly deeper than the entry's base indent; common indent is then
// stripped"). byteBudgetStart is the byte offset the MaxPatternBytes guard
// measures from.
func (p *Parser) parsePatternBody(baseIndent int, byteBudgetStart int, depth int) *ast.Pattern {
	pos := p.sc.Pos()

	type rawLine struct {
		indent int // -1 marks a blank separator line
		elems  []ast.PatternElement
	}

	lines := []rawLine{{indent: 0, elems: p.parseLineRemainderElems(depth)}}

	for {
		if p.aborted {
			break
		}
		if p.sc.Offset()-byteBudgetStart > p.opts.MaxPatternBytes {
			p.abort(&ast.ParseError{
				Kind:    ast.LimitExceeded,
				Message: "pattern exceeds maximum byte length",
				Span:    ast.Span{Start: pos, End: p.sc.Pos()},
			})
			break
		}
		ok, indent, blanks := p.tryContinuePattern(baseIndent)
		if !ok {
			break
		}
		for i := 0; i < blanks; i++ {
			lines = append(lines, rawLine{indent: -1})
		}
		lines = append(lines, rawLine{indent: indent, elems: p.parseLineRemainderElems(depth)})
	}

	commonIndent := -1
	for _, ln := range lines[1:] {
		if ln.indent < 0 {
			continue
		}
		if commonIndent == -1 || ln.indent < commonIndent {
			commonIndent = ln.indent
		}
	}
	if commonIndent < 0 {
		commonIndent = 0
	}

	var out []ast.PatternElement
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 {
			if te, ok := out[n-1].(*ast.TextElement); ok {
				te.Value += s
				return
			}
		}
		out = append(out, &ast.TextElement{Value: s, Pos: pos})
	}
	appendElems := func(elems []ast.PatternElement) {
		for _, e := range elems {
			if te, ok := e.(*ast.TextElement); ok {
				appendText(te.Value)
				continue
			}
			out = append(out, e)
		}
	}

	appendElems(lines[0].elems)
	for _, ln := range lines[1:] {
		if ln.indent < 0 {
			appendText("\n")
			continue
		}
		appendText("\n" + strings.Repeat(" ", ln.indent-commonIndent))
		appendElems(ln.elems)
	}

	if n := len(out); n > 0 {
		if te, ok := out[n-1].(*ast.TextElement); ok {
			te.Value = strings.TrimRight(te.Value, "\n")
			if te.Value == "" {
				out = out[:n-1]
			}
		}
	}

	return &ast.Pattern{Elements: out, Pos: pos}
}

// parseLineRemainderElems parses from the cursor to the end of the current
// line (newline or EOF, not consumed), turning `{` into a recursively
// parsed Placeable.
func (p *Parser) parseLineRemainderElems(depth int) []ast.PatternElement {
	var out []ast.PatternElement
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, &ast.TextElement{Value: buf.String(), Pos: p.sc.Pos()})
			buf.Reset()
		}
	}
	for {
		if p.aborted {
			break
		}
		b := p.sc.PeekByte()
		if b == 0 || b == '\n' {
			break
		}
		if b == '{' {
			flush()
			pos := p.sc.Pos()
			p.sc.AdvanceByte()
			expr := p.parsePlaceableBody(depth + 1)
			out = append(out, &ast.Placeable{Expression: expr, Pos: pos})
			continue
		}
		if b < 0x80 {
			buf.WriteByte(b)
			p.sc.AdvanceByte()
		} else {
			r, _ := p.sc.PeekRune()
			buf.WriteRune(r)
			p.sc.Advance()
		}
	}
	flush()
	return out
}

// tryContinuePattern looks ahead past blank lines for a continuation line
// indented strictly deeper than baseIndent. It leaves the cursor
// positioned right after that line's indentation on success, and rolls
// back entirely on failure. A line starting with `.identifier` is treated
// as an attribute boundary, never as pattern continuation, even if its
// indent would otherwise qualify.
func (p *Parser) tryContinuePattern(baseIndent int) (ok bool, indent int, blanks int) {
	snapshot := *p.sc
	for {
		if p.sc.PeekByte() != '\n' {
			*p.sc = snapshot
			return false, 0, blanks
		}
		p.sc.AdvanceByte()
		ind := 0
		for p.sc.PeekByte() == ' ' {
			p.sc.AdvanceByte()
			ind++
		}
		switch p.sc.PeekByte() {
		case 0:
			*p.sc = snapshot
			return false, 0, blanks
		case '\n':
			blanks++
			continue
		default:
			if ind <= baseIndent {
				*p.sc = snapshot
				return false, 0, blanks
			}
			if p.sc.PeekByte() == '.' {
				if nb := p.sc.PeekByteAt(1); nb < 128 && isIdentStartByte(nb) {
					*p.sc = snapshot
					return false, 0, blanks
				}
			}
			return true, ind, blanks
		}
	}
}

func isIdentStartByte(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
