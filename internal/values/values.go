// Package values implements FluentValue, the tagged union the resolver
// passes between placeables, variables, and function calls (spec §9
// "Dynamic argument values"). Coercion between kinds is always explicit;
// there is no implicit numeric-to-string promotion outside of
// FormatToString.
package values

import (
	"strconv"
	"time"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindDateTime
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindDecimal:
		return "Decimal"
	case KindString:
		return "String"
	case KindDateTime:
		return "DateTime"
	case KindCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Value is an immutable tagged union. Zero value is None.
type Value struct {
	kind     Kind
	b        bool
	i        int64
	dec      float64
	fracDigs int // v-operand: declared fraction-digit count, not intrinsic precision
	s        string
	t        time.Time
	custom   any

	hasDisplay bool
	display    string
}

// None returns the None variant.
func None() Value { return Value{kind: KindNone} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integral number with zero declared fraction digits.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Decimal wraps a number together with the fraction-digit count declared
// at the point it was produced (e.g. by a NumberLiteral or a NUMBER()
// call's minimumFractionDigits), since plural-category selection depends
// on the declared v-operand rather than the float's intrinsic precision.
func Decimal(v float64, fractionDigits int) Value {
	return Value{kind: KindDecimal, dec: v, fracDigs: fractionDigits}
}

// DecimalDisplay wraps a number with a pre-rendered, locale-formatted
// display string (e.g. from NUMBER(), which must remain numeric for
// plural-category selection while substituting its x/text-formatted
// text into pattern output rather than a bare strconv rendering).
func DecimalDisplay(v float64, fractionDigits int, display string) Value {
	return Value{kind: KindDecimal, dec: v, fracDigs: fractionDigits, hasDisplay: true, display: display}
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// DateTime wraps a time value.
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// Custom wraps an opaque caller-supplied value. The resolver never
// inspects its contents directly; it is only ever passed through to
// caller-registered functions or stringified via a Stringer.
func Custom(v any) Value { return Value{kind: KindCustom, custom: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) Bool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)          { return v.i, v.kind == KindInt }
func (v Value) StringVal() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) DateTimeVal() (time.Time, bool) { return v.t, v.kind == KindDateTime }
func (v Value) CustomVal() (any, bool)      { return v.custom, v.kind == KindCustom }

// DecimalVal returns the numeric value and its declared fraction-digit
// count for both Int and Decimal kinds (Int always reports 0 digits).
func (v Value) DecimalVal() (value float64, fractionDigits int, ok bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), 0, true
	case KindDecimal:
		return v.dec, v.fracDigs, true
	default:
		return 0, 0, false
	}
}

// IsNumeric reports whether v carries a number usable for plural-category
// selection (Int or Decimal).
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindDecimal
}

// FormatToString renders v the way it is substituted into pattern text:
// the one place an implicit, lossy string coercion is sanctioned (spec
// §9 "coercion is explicit at placeable boundaries" — this is that
// boundary). Custom values are stringified via fmt's %v if they don't
// implement fmt.Stringer, handled by the caller since this package has
// no formatting dependency of its own.
func (v Value) FormatToString() string {
	if v.hasDisplay {
		return v.display
	}
	switch v.kind {
	case KindNone:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.dec, 'f', -1, 64)
	case KindString:
		return v.s
	case KindDateTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}
