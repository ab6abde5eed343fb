package registry

import (
	"fmt"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/opal-lang/fluentcore/internal/values"
)

// RegisterBuiltins seeds r with NUMBER, DATETIME, and CURRENCY (spec
// §4.4 "Numeric and datetime values"), each locale-aware via x/text. It
// is the Bundle's standard seed before any caller registrations and
// before Freeze.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register("NUMBER", Signature{
		PositionalArity: 1,
		NamedParams:     []string{"minimumFractionDigits", "maximumFractionDigits", "useGrouping"},
		InjectLocale:    true,
	}, builtinNumber); err != nil {
		return err
	}
	if err := r.Register("DATETIME", Signature{
		PositionalArity: 1,
		NamedParams:     []string{"dateStyle", "timeStyle"},
		InjectLocale:    true,
	}, builtinDateTime); err != nil {
		return err
	}
	if err := r.Register("CURRENCY", Signature{
		PositionalArity: 1,
		NamedParams:     []string{"currencyDisplay"},
		InjectLocale:    true,
	}, builtinCurrency); err != nil {
		return err
	}
	return nil
}

func parseLocale(locale []string) language.Tag {
	for _, l := range locale {
		if tag, err := language.Parse(l); err == nil {
			return tag
		}
	}
	return language.Und
}

// builtinNumber formats its argument with the declared fraction-digit
// count carried through as the v-operand (not recomputed from the
// underlying float), since that count drives downstream plural-category
// selection, not intrinsic precision.
func builtinNumber(locale []string, positional []values.Value, named map[string]values.Value) (values.Value, error) {
	if len(positional) != 1 {
		return values.None(), fmt.Errorf("NUMBER: expected 1 positional argument, got %d", len(positional))
	}
	v, fracDigits, ok := positional[0].DecimalVal()
	if !ok {
		return values.None(), fmt.Errorf("NUMBER: argument is not numeric")
	}
	if min, ok := namedInt(named, "minimumFractionDigits"); ok {
		fracDigits = min
	}
	tag := parseLocale(locale)
	p := message.NewPrinter(tag)
	useGrouping := true
	if ug, ok := named["useGrouping"]; ok {
		if b, isBool := ug.Bool(); isBool {
			useGrouping = b
		}
	}
	var formatted string
	if useGrouping {
		formatted = p.Sprintf("%v", number.Decimal(v, number.Scale(fracDigits)))
	} else {
		formatted = p.Sprintf("%v", number.Decimal(v, number.Scale(fracDigits), number.NoSeparator()))
	}
	return values.DecimalDisplay(v, fracDigits, formatted), nil
}

func namedInt(named map[string]values.Value, key string) (int, bool) {
	v, ok := named[key]
	if !ok {
		return 0, false
	}
	f, _, ok := v.DecimalVal()
	if !ok {
		return 0, false
	}
	return int(f), true
}

func builtinDateTime(locale []string, positional []values.Value, named map[string]values.Value) (values.Value, error) {
	if len(positional) != 1 {
		return values.None(), fmt.Errorf("DATETIME: expected 1 positional argument, got %d", len(positional))
	}
	t, ok := positional[0].DateTimeVal()
	if !ok {
		return values.None(), fmt.Errorf("DATETIME: argument is not a datetime")
	}
	layout := time.RFC3339
	if style, ok := named["dateStyle"]; ok {
		if s, isStr := style.StringVal(); isStr {
			switch s {
			case "short":
				layout = "2006-01-02"
			case "long":
				layout = "January 2, 2006"
			}
		}
	}
	return values.String(t.Format(layout)), nil
}

func builtinCurrency(locale []string, positional []values.Value, named map[string]values.Value) (values.Value, error) {
	if len(positional) != 1 {
		return values.None(), fmt.Errorf("CURRENCY: expected 1 positional argument, got %d", len(positional))
	}
	v, _, ok := positional[0].DecimalVal()
	if !ok {
		return values.None(), fmt.Errorf("CURRENCY: argument is not numeric")
	}
	tag := parseLocale(locale)
	region, _ := tag.Region()
	unit, ok := currency.FromRegion(region)
	if !ok {
		unit = currency.USD
	}
	p := message.NewPrinter(tag)
	formatted := p.Sprintf("%v", currency.Symbol(unit.Amount(v)))
	return values.DecimalDisplay(v, 2, formatted), nil
}
