// Package serializer turns a parsed ast.Resource back into canonical FTL
// text (spec §4.2). It forms a roundtrip pair with internal/parser: two
// parse→serialize passes converge to a fixed point, though the first pass
// may differ from arbitrary input due to whitespace normalization.
package serializer

import (
	"fmt"
	"strings"

	"github.com/opal-lang/fluentcore/internal/ast"
)

// Serialize renders r as canonical FTL source text, entries in source
// order, separated by a single blank line, with a trailing newline.
func Serialize(r *ast.Resource) string {
	parts := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		parts = append(parts, serializeEntry(e))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func serializeEntry(e ast.Entry) string {
	switch v := e.(type) {
	case *ast.Message:
		return serializeMessage(v)
	case *ast.Term:
		return serializeTerm(v)
	case *ast.Comment:
		return serializeComment(v)
	case *ast.Junk:
		return strings.TrimRight(v.Content, "\n")
	default:
		return ""
	}
}

func serializeComment(c *ast.Comment) string {
	prefix := strings.Repeat("#", clampLevel(c.Level))
	lines := strings.Split(c.Text, "\n")
	out := make([]string, len(lines))
	for i, l := range lines {
		if l == "" {
			out[i] = prefix
		} else {
			out[i] = prefix + " " + l
		}
	}
	return strings.Join(out, "\n")
}

func clampLevel(l int) int {
	if l < 1 {
		return 1
	}
	if l > 3 {
		return 3
	}
	return l
}

func serializeMessage(m *ast.Message) string {
	var b strings.Builder
	b.WriteString(m.ID)
	if m.Value != nil {
		b.WriteString(" =")
		writeAssignmentBody(&b, m.Value, 0)
	}
	for _, a := range m.Attributes {
		b.WriteString("\n    .")
		b.WriteString(a.ID)
		b.WriteString(" =")
		writeAssignmentBody(&b, a.Value, 4)
	}
	return b.String()
}

func serializeTerm(t *ast.Term) string {
	var b strings.Builder
	b.WriteString("-")
	b.WriteString(t.ID)
	if t.Value != nil {
		b.WriteString(" =")
		writeAssignmentBody(&b, t.Value, 0)
	}
	for _, a := range t.Attributes {
		b.WriteString("\n    .")
		b.WriteString(a.ID)
		b.WriteString(" =")
		writeAssignmentBody(&b, a.Value, 4)
	}
	return b.String()
}

// writeAssignmentBody renders ` <first line>` followed by continuation
// lines reflowed to attrIndent+4 spaces (spec §4.2).
func writeAssignmentBody(b *strings.Builder, pat *ast.Pattern, attrIndent int) {
	first, rest := splitPatternLines(pat, attrIndent+4)
	if first != "" {
		b.WriteString(" ")
		b.WriteString(first)
	}
	indent := strings.Repeat(" ", attrIndent+4)
	for _, l := range rest {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString(l)
	}
}

// splitPatternLines renders a Pattern's elements into logical output
// lines (placeables rendered inline as `{ expr }`), without any leading
// indentation applied — the caller indents continuation lines.
func splitPatternLines(pat *ast.Pattern, nestedIndent int) (first string, rest []string) {
	var lines []string
	var cur strings.Builder
	for _, el := range pat.Elements {
		switch v := el.(type) {
		case *ast.TextElement:
			parts := strings.Split(v.Value, "\n")
			cur.WriteString(parts[0])
			for _, p := range parts[1:] {
				lines = append(lines, cur.String())
				cur.Reset()
				cur.WriteString(p)
			}
		case *ast.Placeable:
			cur.WriteString(serializePlaceable(v, nestedIndent))
		}
	}
	lines = append(lines, cur.String())
	return lines[0], lines[1:]
}

func serializePlaceable(pl *ast.Placeable, indent int) string {
	if sel, ok := pl.Expression.(*ast.SelectExpression); ok {
		return "{ " + serializeSelect(sel, indent) + "\n" + strings.Repeat(" ", indent) + "}"
	}
	return "{ " + serializeExpression(pl.Expression, indent) + " }"
}

func serializeSelect(sel *ast.SelectExpression, indent int) string {
	var b strings.Builder
	b.WriteString(serializeExpression(sel.Selector, indent))
	b.WriteString(" ->")
	variantIndent := indent + 4
	vindent := strings.Repeat(" ", variantIndent)
	cindent := strings.Repeat(" ", variantIndent+4)
	for i, v := range sel.Variants {
		b.WriteString("\n")
		b.WriteString(vindent)
		if i == sel.DefaultIndex {
			b.WriteString("*")
		}
		b.WriteString("[")
		b.WriteString(serializeVariantKey(v.Key))
		b.WriteString("]")
		first, rest := splitPatternLines(v.Value, variantIndent+4)
		if first != "" {
			b.WriteString(" ")
			b.WriteString(first)
		}
		for _, l := range rest {
			b.WriteString("\n")
			b.WriteString(cindent)
			b.WriteString(l)
		}
	}
	return b.String()
}

func serializeVariantKey(k ast.VariantKey) string {
	switch v := k.(type) {
	case ast.Identifier:
		return v.Name
	case *ast.NumberLiteral:
		return v.Raw
	default:
		return ""
	}
}

func serializeExpression(e ast.Expression, indent int) string {
	switch v := e.(type) {
	case *ast.StringLiteral:
		return `"` + escapeString(v.Value) + `"`
	case *ast.NumberLiteral:
		return v.Raw
	case *ast.VariableReference:
		return "$" + v.ID
	case *ast.MessageReference:
		if v.Attr != "" {
			return v.ID + "." + v.Attr
		}
		return v.ID
	case *ast.TermReference:
		s := "-" + v.ID
		if v.Attr != "" {
			s += "." + v.Attr
		}
		if v.Args != nil {
			s += serializeCallArguments(v.Args, indent)
		}
		return s
	case *ast.FunctionReference:
		return v.ID + serializeCallArguments(v.Args, indent)
	case *ast.SelectExpression:
		return serializeSelect(v, indent)
	default:
		return ""
	}
}

func serializeCallArguments(a *ast.CallArguments, indent int) string {
	if a == nil {
		return "()"
	}
	parts := make([]string, 0, len(a.Positional)+len(a.Named))
	for _, p := range a.Positional {
		parts = append(parts, serializeExpression(p, indent))
	}
	for _, n := range a.Named {
		parts = append(parts, n.Name+": "+serializeExpression(n.Value, indent))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// escapeString re-escapes a string literal's value minimally: the two
// characters that would otherwise be ambiguous in FTL source (`\` and
// `"`), plus control characters below U+0020 as \u{XXXX} escapes.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			if r < 0x20 {
				b.WriteString(`\u{`)
				b.WriteString(fmt.Sprintf("%04X", r))
				b.WriteString(`}`)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
