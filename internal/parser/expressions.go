package parser

import (
	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/lexer"
)

// parsePlaceableBody parses the contents of a `{ ... }` whose opening
// brace has already been consumed by the caller. Placeables permit
// arbitrary whitespace, including newlines, between tokens (spec §4.1).
func (p *Parser) parsePlaceableBody(depth int) ast.Expression {
	pos := p.sc.Pos()
	if depth > p.opts.MaxPlaceableDepth {
		p.abort(&ast.ParseError{
			Kind:    ast.LimitExceeded,
			Message: "placeable nesting depth exceeded",
			Span:    ast.Span{Start: pos, End: pos},
		})
		return &ast.StringLiteral{Value: "", Pos: pos}
	}
	p.skipWsAndNewlines()
	expr := p.parseExpression(depth)
	p.skipWsAndNewlines()
	if p.sc.PeekByte() == '}' {
		p.sc.AdvanceByte()
	} else if !p.aborted {
		p.recordError(&ast.ParseError{
			Kind:    ast.UnclosedBrace,
			Message: "expected '}'",
			Span:    ast.Span{Start: pos, End: p.sc.Pos()},
		})
	}
	return expr
}

// parseExpression parses an InlineExpression, then checks for a trailing
// `->` that turns it into a SelectExpression selector.
func (p *Parser) parseExpression(depth int) ast.Expression {
	pos := p.sc.Pos()
	selector := p.parseInlineExpression(depth)

	save := *p.sc
	p.skipWsAndNewlines()
	if p.sc.PeekByte() == '-' && p.sc.PeekByteAt(1) == '>' {
		p.sc.AdvanceByte()
		p.sc.AdvanceByte()
		p.skipInlineSpaces()
		variants, defaultIdx := p.parseVariantList(depth)
		return &ast.SelectExpression{Selector: selector, Variants: variants, DefaultIndex: defaultIdx, Pos: pos}
	}
	*p.sc = save
	return selector
}

func (p *Parser) parseInlineExpression(depth int) ast.Expression {
	pos := p.sc.Pos()
	b := p.sc.PeekByte()

	switch {
	case b == '"':
		return p.parseStringLiteral()

	case b == '$':
		p.sc.AdvanceByte()
		id, ok := p.scanIdentifier()
		if !ok {
			p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "expected variable name after '$'", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
		}
		return &ast.VariableReference{ID: id, Pos: pos}

	case b == '-' && (lexer.IsIdentStart(p.sc.PeekByteAt(1))):
		p.sc.AdvanceByte()
		id, _ := p.scanIdentifier()
		attr := ""
		if p.sc.PeekByte() == '.' {
			p.sc.AdvanceByte()
			attr, _ = p.scanIdentifier()
		}
		var args *ast.CallArguments
		if p.sc.PeekByte() == '(' {
			args = p.parseCallArguments(depth)
		}
		return &ast.TermReference{ID: id, Attr: attr, Args: args, Pos: pos}

	case b == '-' || lexer.IsDigit(b):
		return p.parseNumberLiteral()

	case lexer.IsIdentStart(b):
		id, _ := p.scanIdentifier()
		if p.sc.PeekByte() == '.' {
			p.sc.AdvanceByte()
			attr, _ := p.scanIdentifier()
			return &ast.MessageReference{ID: id, Attr: attr, Pos: pos}
		}
		if p.sc.PeekByte() == '(' {
			if !isUpperFunctionName(id) {
				p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "function identifiers must be ALL_UPPERCASE", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
			}
			args := p.parseCallArguments(depth)
			return &ast.FunctionReference{ID: id, Args: args, Pos: pos}
		}
		return &ast.MessageReference{ID: id, Pos: pos}

	default:
		p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "expected an expression", Span: ast.Span{Start: pos, End: pos}})
		if !p.sc.AtEOF() {
			p.sc.AdvanceByte()
		}
		return &ast.StringLiteral{Value: "", Pos: pos}
	}
}

func (p *Parser) parseCallArguments(depth int) *ast.CallArguments {
	pos := p.sc.Pos()
	p.sc.AdvanceByte() // '('
	p.skipWsAndNewlines()

	args := &ast.CallArguments{Pos: pos}
	seenNames := map[string]bool{}

	for !p.aborted && p.sc.PeekByte() != ')' && p.sc.PeekByte() != 0 {
		namedHandled := false
		if lexer.IsIdentStart(p.sc.PeekByte()) {
			snapshot := *p.sc
			id, _ := p.scanIdentifier()
			p.skipInlineSpaces()
			if p.sc.PeekByte() == ':' {
				p.sc.AdvanceByte()
				p.skipWsAndNewlines()
				val := p.parseInlineExpression(depth)
				if seenNames[id] {
					p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "duplicate named argument '" + id + "'", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
				}
				seenNames[id] = true
				args.Named = append(args.Named, ast.NamedArgument{Name: id, Value: val, Pos: pos})
				namedHandled = true
			} else {
				*p.sc = snapshot
			}
		}
		if !namedHandled {
			args.Positional = append(args.Positional, p.parseInlineExpression(depth))
		}
		p.skipWsAndNewlines()
		if p.sc.PeekByte() == ',' {
			p.sc.AdvanceByte()
			p.skipWsAndNewlines()
			continue
		}
		break
	}
	p.skipWsAndNewlines()
	if p.sc.PeekByte() == ')' {
		p.sc.AdvanceByte()
	} else if !p.aborted {
		p.recordError(&ast.ParseError{Kind: ast.UnclosedBrace, Message: "expected ')'", Span: ast.Span{Start: pos, End: p.sc.Pos()}})
	}
	return args
}

// parseVariantList parses the variant arms of a select expression. The
// `->` has already been consumed; the cursor sits right before the
// newline preceding the first variant. The first variant's indentation
// (start) and the column of its `[` (col) establish the alignment: a
// sibling variant must either start at the same indentation or have its
// `[` in the same column (so `*[other]` may hang one column left of
// `[one]`). A variant's pattern ends at the first line indented no deeper
// than col.
func (p *Parser) parseVariantList(depth int) ([]ast.Variant, int) {
	if !p.tryAdvanceToColumn(-1, -1) {
		// No variants at all on a fresh line: malformed select.
		p.recordError(&ast.ParseError{Kind: ast.MissingDefaultVariant, Message: "select expression has no variants", Span: ast.Span{Start: p.sc.Pos(), End: p.sc.Pos()}})
		return nil, -1
	}
	start := p.sc.Pos().Column - 1
	col := start
	if p.sc.PeekByte() == '*' {
		col++
	}

	var variants []ast.Variant
	defaultIdx := -1

	for {
		if p.aborted {
			break
		}
		isDefault := false
		if p.sc.PeekByte() == '*' {
			isDefault = true
			p.sc.AdvanceByte()
		}
		if p.sc.PeekByte() != '[' {
			break
		}
		p.sc.AdvanceByte()
		keyPos := p.sc.Pos()
		var key ast.VariantKey
		if lexer.IsDigit(p.sc.PeekByte()) || (p.sc.PeekByte() == '-' && lexer.IsDigit(p.sc.PeekByteAt(1))) {
			key = p.parseNumberLiteral()
		} else {
			name, ok := p.scanIdentifier()
			if !ok {
				p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "expected variant key", Span: ast.Span{Start: keyPos, End: p.sc.Pos()}})
			}
			key = ast.Identifier{Name: name, Pos: keyPos}
		}
		if p.sc.PeekByte() == ']' {
			p.sc.AdvanceByte()
		} else {
			p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "expected ']'", Span: ast.Span{Start: keyPos, End: p.sc.Pos()}})
		}
		p.skipInlineSpaces()
		valPos := p.sc.Pos()
		value := p.parsePatternBody(col, p.sc.Offset(), depth)

		if isDefault {
			if defaultIdx != -1 {
				p.recordError(&ast.ParseError{Kind: ast.UnexpectedToken, Message: "multiple default variants", Span: ast.Span{Start: valPos, End: p.sc.Pos()}})
			}
			defaultIdx = len(variants)
		}
		variants = append(variants, ast.Variant{Key: key, Value: value, Default: isDefault, Pos: valPos})

		if !p.tryAdvanceToColumn(start, col) {
			break
		}
	}

	if defaultIdx == -1 && !p.aborted {
		p.recordError(&ast.ParseError{Kind: ast.MissingDefaultVariant, Message: "select expression requires exactly one default (*[key]) variant", Span: ast.Span{Start: p.sc.Pos(), End: p.sc.Pos()}})
		if len(variants) > 0 {
			defaultIdx = len(variants) - 1
		}
	}
	return variants, defaultIdx
}

// tryAdvanceToColumn looks past blank lines for a line starting with `*`
// or `[` either at exactly start spaces of indentation or with its `[`
// in column col (or, when start is -1, at any indentation — used to find
// the first variant). On success the cursor is left right after that
// line's indentation; on failure it rolls back.
func (p *Parser) tryAdvanceToColumn(start, col int) bool {
	snapshot := *p.sc
	for {
		if p.sc.PeekByte() != '\n' {
			*p.sc = snapshot
			return false
		}
		p.sc.AdvanceByte()
		ind := 0
		for p.sc.PeekByte() == ' ' {
			p.sc.AdvanceByte()
			ind++
		}
		switch p.sc.PeekByte() {
		case '\n':
			continue
		case '*', '[':
			bracket := ind
			if p.sc.PeekByte() == '*' {
				bracket++
			}
			if start == -1 || ind == start || bracket == col {
				return true
			}
			*p.sc = snapshot
			return false
		default:
			*p.sc = snapshot
			return false
		}
	}
}
