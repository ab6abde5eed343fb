// Package locale provides the external-collaborator interfaces spec §6
// names for plural-category selection and locale tag handling. It uses
// golang.org/x/text/language for tag parsing and matching; the CLDR
// plural-rule tables themselves are a deliberately small, pragmatic
// subset rather than x/text/feature/plural's full compiled rule set (see
// DESIGN.md for why that package was not wired in directly).
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Category is a CLDR plural category (spec GLOSSARY).
type Category string

const (
	Zero  Category = "zero"
	One   Category = "one"
	Two   Category = "two"
	Few   Category = "few"
	Many  Category = "many"
	Other Category = "other"
)

// SelectPluralCategory implements the external "plural rules provider"
// collaborator (spec §6): select_plural_category(locale, number,
// precision?). n is the numeric value, fractionDigits is the declared
// v-operand (spec GLOSSARY), used to distinguish e.g. "1" from "1.0" in
// languages where that changes the category.
func SelectPluralCategory(localeChain []string, n float64, fractionDigits int) Category {
	base := baseLanguage(localeChain)
	neg := n < 0
	if neg {
		n = -n
	}
	i := int64(n) // integer part, per CLDR "i" operand

	switch base {
	case "ja", "ko", "th", "vi", "zh", "id", "ms", "lo", "km":
		// CLDR: no plural distinction beyond "other".
		return Other

	case "ru", "uk", "be", "sr", "hr", "bs":
		return slavicCategory(i, fractionDigits)

	case "pl":
		return polishCategory(i, fractionDigits)

	case "cs", "sk":
		if fractionDigits == 0 && i == 1 {
			return One
		}
		if fractionDigits == 0 && i >= 2 && i <= 4 {
			return Few
		}
		if fractionDigits > 0 {
			return Many
		}
		return Other

	case "ar":
		return arabicCategory(n, i)

	case "ga":
		if i == 1 {
			return One
		}
		if i == 2 {
			return Two
		}
		if i >= 3 && i <= 6 {
			return Few
		}
		if i >= 7 && i <= 10 {
			return Many
		}
		return Other

	case "lv":
		if i == 0 {
			return Zero
		}
		if i%10 == 1 && i%100 != 11 {
			return One
		}
		return Other

	default:
		// English-like: "one" is exactly 1 with no declared fraction
		// digits, everything else (including 1.0) is "other". Covers
		// en, de, nl, sv, da, no, es, it, el, fi, hu, pt and most
		// languages with a simple singular/plural split.
		if i == 1 && fractionDigits == 0 {
			return One
		}
		return Other
	}
}

func slavicCategory(i int64, fractionDigits int) Category {
	if fractionDigits != 0 {
		return Other
	}
	mod10 := i % 10
	mod100 := i % 100
	if mod10 == 1 && mod100 != 11 {
		return One
	}
	if mod10 >= 2 && mod10 <= 4 && !(mod100 >= 12 && mod100 <= 14) {
		return Few
	}
	if mod10 == 0 || (mod10 >= 5 && mod10 <= 9) || (mod100 >= 11 && mod100 <= 14) {
		return Many
	}
	return Other
}

func polishCategory(i int64, fractionDigits int) Category {
	if fractionDigits != 0 {
		return Other
	}
	if i == 1 {
		return One
	}
	mod10 := i % 10
	mod100 := i % 100
	if mod10 >= 2 && mod10 <= 4 && !(mod100 >= 12 && mod100 <= 14) {
		return Few
	}
	return Many
}

func arabicCategory(n float64, i int64) Category {
	switch {
	case n == 0:
		return Zero
	case i == 1 && n == 1:
		return One
	case i == 2 && n == 2:
		return Two
	}
	mod100 := int64(n) % 100
	if mod100 >= 3 && mod100 <= 10 {
		return Few
	}
	if mod100 >= 11 && mod100 <= 99 {
		return Many
	}
	return Other
}

// baseLanguage resolves the first usable locale in the chain to its
// base ISO-639 subtag via x/text/language, ignoring region/script.
func baseLanguage(localeChain []string) string {
	for _, l := range localeChain {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		base, conf := tag.Base()
		if conf != language.No {
			return strings.ToLower(base.String())
		}
	}
	return ""
}
