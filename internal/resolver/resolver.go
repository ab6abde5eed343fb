// Package resolver implements format_pattern (spec §4.4): evaluating a
// parsed pattern against a ResolutionContext of arguments, locale,
// functions, and a depth counter, producing a formatted string plus any
// accumulated errors. It never panics on a well-formed AST.
package resolver

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/locale"
	"github.com/opal-lang/fluentcore/internal/registry"
	"github.com/opal-lang/fluentcore/internal/values"
)

const (
	fsi = "⁨"
	pdi = "⁩"
)

// ErrorKind enumerates the Resolution taxonomy from spec §7, plus
// CyclicDependency (normally a Validation-phase error, spec §7) which
// the resolver also raises inline when it detects a reference cycle
// during evaluation rather than relying on prior validation having run.
type ErrorKind string

const (
	UnknownMessage          ErrorKind = "UnknownMessage"
	UnknownTerm             ErrorKind = "UnknownTerm"
	UnknownVariable         ErrorKind = "UnknownVariable"
	UnknownFunction         ErrorKind = "UnknownFunction"
	FunctionError           ErrorKind = "FunctionError"
	MaxDepthExceeded        ErrorKind = "MaxDepthExceeded"
	ExpansionBudgetExceeded ErrorKind = "ExpansionBudgetExceeded"
	CyclicDependency        ErrorKind = "CyclicDependency"
)

// Error is an immutable resolution diagnostic (spec §7 "immutable and
// carry a minimal context ... no references to live resolver frames").
type Error struct {
	Kind    ErrorKind
	Message string
	EntryID string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// EntryLookup is the narrow read interface the resolver needs into a
// bundle's index, kept separate from the bundle package to avoid an
// import cycle (the bundle wires the resolver, not the reverse).
type EntryLookup interface {
	LookupMessage(id string) (*ast.Message, bool)
	LookupTerm(id string) (*ast.Term, bool)
}

// Options are the DoS-hardening bounds from spec §4.4 and §6.
type Options struct {
	MaxResolutionDepth int
	MaxExpansionBytes  int
}

// DefaultOptions returns the defaults named in spec §6.
func DefaultOptions() Options {
	return Options{MaxResolutionDepth: 100, MaxExpansionBytes: 10 << 20}
}

// Resolver formats patterns against one bundle's index, functions, and
// locale chain. It is immutable and safe for concurrent use; all mutable
// state lives in the per-call runState/Context.
type Resolver struct {
	Lookup    EntryLookup
	Functions *registry.Registry
	Locale    []string
	Strict    bool
	Opts      Options
}

// runState is the bookkeeping shared across every ResolutionContext
// forked during one FormatPattern call: depth, expansion budget, the
// error list, and the in-progress set all describe the call as a whole,
// not any one scope. Only `args` varies between a caller's context and a
// TermReference's isolated child context (spec §4.4 rule 4).
type runState struct {
	depth             int
	expansionBytes    int
	budgetErrorLogged bool
	aborted           bool
	errs              []*Error
	inProgress        map[string]bool

	lookup    EntryLookup
	functions *registry.Registry
	locale    []string
	strict    bool
	opts      Options
}

// Context is a ResolutionContext (spec §3, §4.4): a runState plus the
// arguments visible to variable references in the current scope.
type Context struct {
	*runState
	args map[string]values.Value
}

func (rs *runState) addError(e *Error) {
	rs.errs = append(rs.errs, e)
	if rs.strict {
		rs.aborted = true
	}
}

// FormatPattern evaluates message id's value (or, if attr is non-empty,
// its named attribute) against args, returning the formatted string and
// any accumulated errors. In strict mode, a non-empty error list means
// the formatted string is "" (spec §4.4 "fails the whole call").
func (r *Resolver) FormatPattern(id, attr string, args map[string]values.Value) (string, []*Error) {
	rs := &runState{
		inProgress: make(map[string]bool),
		lookup:     r.Lookup,
		functions:  r.Functions,
		locale:     r.Locale,
		strict:     r.Strict,
		opts:       r.Opts,
	}
	ctx := &Context{runState: rs, args: args}

	key := "msg:" + id
	pat, ok := ctx.lookupPattern(key, attr, false)
	if !ok {
		rs.addError(&Error{Kind: UnknownMessage, Message: "message '" + id + "' not found", EntryID: id})
		if rs.strict {
			return "", rs.errs
		}
		return fallbackRef(id, attr, false), rs.errs
	}

	rs.inProgress[cycleKey(key, attr)] = true
	out := ctx.evalPattern(pat)
	if rs.strict && rs.aborted {
		return "", rs.errs
	}
	return out, rs.errs
}

// lookupPattern resolves a qualified node key ("msg:foo" / "term:-bar")
// and optional attribute name to the Pattern to evaluate.
func (ctx *Context) lookupPattern(key, attr string, isTerm bool) (*ast.Pattern, bool) {
	if isTerm {
		id := strings.TrimPrefix(key, "term:-")
		t, ok := ctx.lookup.LookupTerm(id)
		if !ok {
			return nil, false
		}
		if attr == "" {
			return t.Value, true
		}
		for _, a := range t.Attributes {
			if a.ID == attr {
				return a.Value, true
			}
		}
		return nil, false
	}
	id := strings.TrimPrefix(key, "msg:")
	m, ok := ctx.lookup.LookupMessage(id)
	if !ok {
		return nil, false
	}
	if attr == "" {
		if m.Value == nil {
			return nil, false
		}
		return m.Value, true
	}
	for _, a := range m.Attributes {
		if a.ID == attr {
			return a.Value, true
		}
	}
	return nil, false
}

func cycleKey(key, attr string) string { return key + "#" + attr }

func fallbackRef(id, attr string, isTerm bool) string {
	prefix := ""
	if isTerm {
		prefix = "-"
	}
	if attr != "" {
		return "{" + prefix + id + "." + attr + "}"
	}
	return "{" + prefix + id + "}"
}

// evalPattern evaluates every element of pat in order, enforcing the
// depth guard (spec §4.4 "Depth guard") and expansion-size guard (spec
// §4.4 "Expansion-size guard") across the whole call, not per scope.
func (ctx *Context) evalPattern(pat *ast.Pattern) string {
	ctx.depth++
	defer func() { ctx.depth-- }()

	if ctx.depth > ctx.opts.MaxResolutionDepth {
		ctx.addError(&Error{Kind: MaxDepthExceeded, Message: "maximum resolution depth exceeded"})
		return ""
	}

	var b strings.Builder
	for _, el := range pat.Elements {
		// Checked before descending into a placeable, not only after:
		// a Billion-Laughs pattern doubles in size at every level, so
		// waiting until after a child's full recursive evaluation to
		// notice the budget is blown lets the blowup happen anyway.
		if ctx.aborted || ctx.expansionBytes > ctx.opts.MaxExpansionBytes {
			break
		}
		switch v := el.(type) {
		case *ast.TextElement:
			ctx.appendBudget(len(v.Value))
			b.WriteString(v.Value)
		case *ast.Placeable:
			txt := ctx.evalPlaceable(v)
			ctx.appendBudget(len(txt))
			b.WriteString(txt)
		}
	}
	return b.String()
}

// appendBudget tracks cumulative output bytes across the whole call
// (spec §4.4 "running total of bytes appended to the output across one
// format_pattern call"), raising ExpansionBudgetExceeded once.
func (ctx *Context) appendBudget(n int) {
	ctx.expansionBytes += n
	if ctx.expansionBytes > ctx.opts.MaxExpansionBytes && !ctx.budgetErrorLogged {
		ctx.budgetErrorLogged = true
		ctx.addError(&Error{Kind: ExpansionBudgetExceeded, Message: "expansion budget exceeded"})
	}
}

// evalPlaceable evaluates a placeable's expression to a value and
// renders it as pattern text. A substitution is wrapped in FSI/PDI
// (spec §4.4 "Bidi isolation") only when the direction of its first
// letter differs from the base direction of the first locale in the
// chain; text elements never are. Custom values are rendered with
// fmt.Sprint (their String method when they implement fmt.Stringer).
func (ctx *Context) evalPlaceable(pl *ast.Placeable) string {
	if sel, ok := pl.Expression.(*ast.SelectExpression); ok {
		return ctx.evalSelect(sel)
	}
	v := ctx.valueOfExpr(pl.Expression)
	s := v.FormatToString()
	if c, ok := v.CustomVal(); ok {
		s = fmt.Sprint(c)
	}
	rtlBase := false
	if len(ctx.locale) > 0 {
		lang, _, _ := strings.Cut(strings.ReplaceAll(strings.ToLower(ctx.locale[0]), "_", "-"), "-")
		rtlBase = strings.Contains(" ar dv fa he ps sd ug ur yi ", " "+lang+" ")
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			if unicode.In(r, unicode.Arabic, unicode.Hebrew, unicode.Syriac, unicode.Thaana, unicode.Nko) != rtlBase {
				return fsi + s + pdi
			}
			break
		}
	}
	return s
}

// valueOfExpr evaluates an Expression to a FluentValue. Reference
// expressions (Message/TermReference) are rendered to text and wrapped
// as a String value, since they aren't otherwise representable.
func (ctx *Context) valueOfExpr(e ast.Expression) values.Value {
	switch v := e.(type) {
	case *ast.StringLiteral:
		return values.String(v.Value)
	case *ast.NumberLiteral:
		return values.Decimal(v.Value, v.FractionDigits())
	case *ast.VariableReference:
		if val, ok := ctx.args[v.ID]; ok {
			return val
		}
		ctx.addError(&Error{Kind: UnknownVariable, Message: "unknown variable $" + v.ID})
		return values.String("{$" + v.ID + "}")
	case *ast.MessageReference:
		return values.String(ctx.evalMessageRef(v))
	case *ast.TermReference:
		return values.String(ctx.evalTermRef(v))
	case *ast.FunctionReference:
		return ctx.evalFunctionRef(v)
	case *ast.SelectExpression:
		return values.String(ctx.evalSelect(v))
	default:
		return values.None()
	}
}

// evalMessageRef implements spec §4.4 rule 3: evaluated under the
// *same* ResolutionContext as the caller (shared scope).
func (ctx *Context) evalMessageRef(v *ast.MessageReference) string {
	key := cycleKey("msg:"+v.ID, v.Attr)
	if ctx.inProgress[key] {
		ctx.addError(&Error{Kind: CyclicDependency, Message: "cyclic reference to message '" + v.ID + "'"})
		return fallbackRef(v.ID, v.Attr, false)
	}
	pat, ok := ctx.lookupPattern("msg:"+v.ID, v.Attr, false)
	if !ok {
		ctx.addError(&Error{Kind: UnknownMessage, Message: "unknown message '" + v.ID + "'"})
		return fallbackRef(v.ID, v.Attr, false)
	}
	ctx.inProgress[key] = true
	defer delete(ctx.inProgress, key)
	return ctx.evalPattern(pat)
}

// evalTermRef implements spec §4.4 rule 4: a *fresh* ResolutionContext
// whose args are exactly the call's explicit named arguments — the
// caller's scope is never visible inside the term. depth, the expansion
// budget, the error list, and the in-progress cycle set all continue
// from the same runState; isolating them too would let a chain of term
// calls defeat the DoS bounds.
func (ctx *Context) evalTermRef(v *ast.TermReference) string {
	key := cycleKey("term:-"+v.ID, v.Attr)
	if ctx.inProgress[key] {
		ctx.addError(&Error{Kind: CyclicDependency, Message: "cyclic reference to term '-" + v.ID + "'"})
		return fallbackRef(v.ID, v.Attr, true)
	}
	pat, ok := ctx.lookupPattern("term:-"+v.ID, v.Attr, true)
	if !ok {
		ctx.addError(&Error{Kind: UnknownTerm, Message: "unknown term '-" + v.ID + "'"})
		return fallbackRef(v.ID, v.Attr, true)
	}

	isolatedArgs := make(map[string]values.Value)
	if v.Args != nil {
		for _, n := range v.Args.Named {
			isolatedArgs[n.Name] = ctx.valueOfExpr(n.Value)
		}
	}
	child := &Context{runState: ctx.runState, args: isolatedArgs}

	child.inProgress[key] = true
	defer delete(child.inProgress, key)
	return child.evalPattern(pat)
}

// evalFunctionRef implements spec §4.4 rule 5.
func (ctx *Context) evalFunctionRef(v *ast.FunctionReference) values.Value {
	sig, fn, ok := ctx.functions.Lookup(v.ID)
	if !ok {
		ctx.addError(&Error{Kind: UnknownFunction, Message: "unknown function " + v.ID + "()"})
		return values.String("{" + v.ID + "()}")
	}

	var positional []values.Value
	named := map[string]values.Value{}
	if v.Args != nil {
		for _, p := range v.Args.Positional {
			positional = append(positional, ctx.valueOfExpr(p))
		}
		for _, n := range v.Args.Named {
			named[n.Name] = ctx.valueOfExpr(n.Value)
			if !slices.Contains(sig.NamedParams, n.Name) {
				ctx.addError(&Error{Kind: FunctionError, Message: v.ID + "(): unknown named argument '" + n.Name + "'"})
				return values.String("{" + v.ID + "()}")
			}
		}
	}
	if sig.PositionalArity >= 0 && len(positional) != sig.PositionalArity {
		ctx.addError(&Error{Kind: FunctionError, Message: v.ID + "(): expected " + strconv.Itoa(sig.PositionalArity) + " positional argument(s), got " + strconv.Itoa(len(positional))})
		return values.String("{" + v.ID + "()}")
	}

	var loc []string
	if sig.InjectLocale {
		loc = ctx.locale
	}
	result, err := fn(loc, positional, named)
	if err != nil {
		ctx.addError(&Error{Kind: FunctionError, Message: v.ID + "(): " + err.Error()})
		return values.String("{" + v.ID + "()}")
	}
	return result
}

// evalSelect implements spec §4.4 rule 6.
func (ctx *Context) evalSelect(sel *ast.SelectExpression) string {
	selector := ctx.valueOfExpr(sel.Selector)

	chosen := sel.DefaultIndex
	if n, frac, ok := selector.DecimalVal(); ok {
		cat := locale.SelectPluralCategory(ctx.locale, n, frac)
		matched := false
		for i, variant := range sel.Variants {
			if num, isNum := variant.Key.(*ast.NumberLiteral); isNum && num.Value == n {
				chosen = i
				matched = true
				break
			}
		}
		if !matched {
			for i, variant := range sel.Variants {
				if ident, isIdent := variant.Key.(ast.Identifier); isIdent && ident.Name == string(cat) {
					chosen = i
					matched = true
					break
				}
			}
		}
	} else if s, isStr := selector.StringVal(); isStr {
		for i, variant := range sel.Variants {
			if ident, isIdent := variant.Key.(ast.Identifier); isIdent && ident.Name == s {
				chosen = i
				break
			}
		}
	}

	if chosen < 0 || chosen >= len(sel.Variants) {
		return ""
	}
	return ctx.evalPattern(sel.Variants[chosen].Value)
}
