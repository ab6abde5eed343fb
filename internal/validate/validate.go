// Package validate implements validate_resource (spec §4.7): cross-entry
// semantic checks that never mutate the AST and produce a report instead
// of failing fast, in the style of the parser's own error accumulation.
package validate

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/graph"
)

// ErrorKind enumerates the Validation taxonomy from spec §7.
type ErrorKind string

const (
	DuplicateId        ErrorKind = "DuplicateId"
	UndefinedReference ErrorKind = "UndefinedReference"
	CyclicDependency   ErrorKind = "CyclicDependency"
	InvalidIdentifier  ErrorKind = "InvalidIdentifier"
)

// Error is a single validation diagnostic.
type Error struct {
	Kind    ErrorKind
	Message string
	EntryID string
}

func (e *Error) Error() string { return fmt.Sprintf("%s (%s): %s", e.Kind, e.EntryID, e.Message) }

// Index is the fully-qualified-name -> Entry view a Bundle exposes so
// validation can check references against more than the one resource
// being validated (spec "optionally across a cross-resource context").
type Index map[string]ast.Entry

// Resource validates a single parsed Resource against idx, the
// cross-resource context it will ultimately belong to. idx must not
// already contain the resource's own entries, since any id found in idx
// is reported as DuplicateId; Bundle AddResource calls it before
// inserting. Pass an empty or nil Index to validate in isolation.
func Resource(r *ast.Resource, idx Index) []*Error {
	var errs []*Error

	seen := make(map[string]bool)
	for _, e := range r.Entries {
		switch v := e.(type) {
		case *ast.Message:
			name := "msg:" + v.ID
			if seen[name] || (idx != nil && indexHas(idx, name)) {
				errs = append(errs, &Error{Kind: DuplicateId, Message: "duplicate message id '" + v.ID + "'", EntryID: v.ID})
			}
			seen[name] = true
			errs = append(errs, shapeErrors(v.ID, v.Value, v.Attributes, false)...)
		case *ast.Term:
			name := "term:-" + v.ID
			if seen[name] || (idx != nil && indexHas(idx, name)) {
				errs = append(errs, &Error{Kind: DuplicateId, Message: "duplicate term id '-" + v.ID + "'", EntryID: v.ID})
			}
			seen[name] = true
			errs = append(errs, shapeErrors(v.ID, v.Value, v.Attributes, true)...)
		}
	}

	merged := make(Index, len(idx)+len(seen))
	for k, v := range idx {
		merged[k] = v
	}
	for _, e := range r.Entries {
		switch v := e.(type) {
		case *ast.Message:
			merged["msg:"+v.ID] = v
		case *ast.Term:
			merged["term:-"+v.ID] = v
		}
	}

	errs = append(errs, undefinedRefs(r, merged)...)
	errs = append(errs, cycleErrors(merged)...)
	return errs
}

func indexHas(idx Index, name string) bool {
	_, ok := idx[name]
	return ok
}

// shapeErrors implements the per-entry shape checks: malformed
// identifiers (already guaranteed by the parser's grammar, re-checked
// here defensively since a Resource can be hand-built by a caller rather
// than parsed) and a present-but-empty Pattern, which the grammar
// otherwise allows (an empty Placeable list is syntactically valid).
func shapeErrors(id string, val *ast.Pattern, attrs []ast.Attribute, isTerm bool) []*Error {
	var errs []*Error
	if !isValidIdentifier(id) {
		errs = append(errs, &Error{Kind: InvalidIdentifier, Message: "'" + id + "' is not a valid identifier", EntryID: id})
	}
	if val != nil && len(val.Elements) == 0 {
		errs = append(errs, &Error{Kind: InvalidIdentifier, Message: "empty pattern", EntryID: id})
	}
	for _, a := range attrs {
		if a.Value != nil && len(a.Value.Elements) == 0 {
			errs = append(errs, &Error{Kind: InvalidIdentifier, Message: "empty attribute pattern '." + a.ID + "'", EntryID: id})
		}
		for _, pl := range patternPlaceables(a.Value) {
			errs = append(errs, selectShapeErrors(id, pl)...)
		}
	}
	for _, pl := range patternPlaceables(val) {
		errs = append(errs, selectShapeErrors(id, pl)...)
	}
	return errs
}

func patternPlaceables(pat *ast.Pattern) []*ast.Placeable {
	if pat == nil {
		return nil
	}
	var out []*ast.Placeable
	for _, el := range pat.Elements {
		if pl, ok := el.(*ast.Placeable); ok {
			out = append(out, pl)
		}
	}
	return out
}

// selectShapeErrors walks a placeable looking for SelectExpressions
// missing a default variant (spec "missing default variant"); the
// parser's grammar requires one, but a hand-built Resource might not.
func selectShapeErrors(id string, pl *ast.Placeable) []*Error {
	sel, ok := pl.Expression.(*ast.SelectExpression)
	if !ok {
		return nil
	}
	var errs []*Error
	hasDefault := false
	for _, v := range sel.Variants {
		if v.Default {
			hasDefault = true
		}
	}
	if !hasDefault {
		errs = append(errs, &Error{Kind: InvalidIdentifier, Message: "select expression has no default variant", EntryID: id})
	}
	for _, v := range sel.Variants {
		for _, nested := range patternPlaceables(v.Value) {
			errs = append(errs, selectShapeErrors(id, nested)...)
		}
	}
	return errs
}

func isValidIdentifier(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		ok := ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || c == '_' || c == '-'
		if i == 0 && (c == '-' || ('0' <= c && c <= '9')) {
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// undefinedRefs checks every MessageReference/TermReference in r against
// merged, the full cross-resource index.
func undefinedRefs(r *ast.Resource, merged Index) []*Error {
	var errs []*Error
	candidates := make([]string, 0, len(merged))
	for name := range merged {
		candidates = append(candidates, name)
	}

	check := func(id string, pat *ast.Pattern) {
		for _, pl := range patternPlaceables(pat) {
			walkRefs(pl.Expression, func(name, display string) {
				if _, ok := merged[name]; !ok {
					msg := "undefined reference to " + display
					if suggestion := closestCandidate(name, candidates); suggestion != "" {
						msg += " (did you mean " + stripPrefix(suggestion) + "?)"
					}
					errs = append(errs, &Error{Kind: UndefinedReference, Message: msg, EntryID: id})
				}
			})
		}
	}
	for _, e := range r.Entries {
		switch v := e.(type) {
		case *ast.Message:
			check(v.ID, v.Value)
			for _, a := range v.Attributes {
				check(v.ID, a.Value)
			}
		case *ast.Term:
			check(v.ID, v.Value)
			for _, a := range v.Attributes {
				check(v.ID, a.Value)
			}
		}
	}
	return errs
}

// closestCandidate returns the best fuzzy match for name among
// candidates within a reasonable edit distance, or "" if nothing is
// close enough to be worth suggesting. Used to turn an
// UndefinedReference error into an actionable "did you mean" hint.
func closestCandidate(name string, candidates []string) string {
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	if best.Distance > len(name)/2+2 {
		return ""
	}
	return best.Target
}

func stripPrefix(qualified string) string {
	if s, ok := strings.CutPrefix(qualified, "term:-"); ok {
		return "-" + s
	}
	if s, ok := strings.CutPrefix(qualified, "msg:"); ok {
		return s
	}
	return qualified
}

func walkRefs(e ast.Expression, report func(name, display string)) {
	switch v := e.(type) {
	case *ast.MessageReference:
		report("msg:"+v.ID, v.ID)
	case *ast.TermReference:
		report("term:-"+v.ID, "-"+v.ID)
		walkArgs(v.Args, report)
	case *ast.FunctionReference:
		walkArgs(v.Args, report)
	case *ast.SelectExpression:
		walkRefs(v.Selector, report)
		for _, variant := range v.Variants {
			if variant.Value == nil {
				continue
			}
			for _, el := range variant.Value.Elements {
				if pl, ok := el.(*ast.Placeable); ok {
					walkRefs(pl.Expression, report)
				}
			}
		}
	}
}

func walkArgs(a *ast.CallArguments, report func(name, display string)) {
	if a == nil {
		return
	}
	for _, p := range a.Positional {
		walkRefs(p, report)
	}
	for _, n := range a.Named {
		walkRefs(n.Value, report)
	}
}

// cycleErrors runs the shared dependency-graph cycle detector (spec
// §4.3) over the full cross-resource index and reports one error per
// distinct canonical cycle.
func cycleErrors(merged Index) []*Error {
	entries := make(map[string]ast.Entry, len(merged))
	for k, v := range merged {
		entries[k] = v
	}
	g := graph.Build(entries)
	cycles, _ := graph.DetectCycles(g, graph.DefaultCycleBudget)

	seen := make(map[string]bool)
	var errs []*Error
	for _, c := range cycles {
		if seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		head := c.Nodes[0]
		errs = append(errs, &Error{
			Kind:    CyclicDependency,
			Message: "cyclic reference: " + cyclePath(c.Nodes),
			EntryID: head,
		})
	}
	return errs
}

func cyclePath(nodes []string) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	if len(nodes) > 0 {
		s += " -> " + nodes[0]
	}
	return s
}
