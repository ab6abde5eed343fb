// Package cache implements the Integrity Cache (spec §4.5): bounded,
// write-once-per-key memoization of resolved outputs, keyed by a
// canonical fingerprint of (entry id, attribute, arguments, locale
// chain, bundle generation), guarded by internal/rwlock and evicted by a
// segmented-LRU policy with a protected tier.
package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/fluentcore/internal/values"
)

// DefaultHashNodeBudget bounds structural hashing of caller-supplied
// Custom argument values (spec §6 hash_node_budget).
const DefaultHashNodeBudget = 10_000

// ErrUnhashableArgs is returned when canonicalizing an argument set
// exceeds the node budget; the caller must bypass caching for that call.
var ErrUnhashableArgs = errors.New("cache: argument set exceeds hash node budget")

// Key is the cache's fingerprint: a fixed-size digest suitable for use
// directly as a Go map key.
type Key [32]byte

// ComputeKey builds the canonical fingerprint for (entryID, attr, args,
// locale, generation). Arguments are canonicalized to a deterministic
// CBOR encoding (map keys sorted, per the CBOR canonical-encoding mode)
// before hashing, so that argument-order or map-iteration differences
// never produce different keys for logically identical calls.
func ComputeKey(entryID, attr string, args map[string]values.Value, loc []string, generation uint64, nodeBudget int) (Key, error) {
	if nodeBudget <= 0 {
		nodeBudget = DefaultHashNodeBudget
	}
	budget := nodeBudget

	canonicalArgs := make(map[string]any, len(args))
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := canonicalize(args[name], &budget)
		if err != nil {
			return Key{}, err
		}
		canonicalArgs[name] = v
	}

	payload := struct {
		EntryID    string
		Attr       string
		Args       map[string]any
		Locale     []string
		Generation uint64
	}{entryID, attr, canonicalArgs, loc, generation}

	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return Key{}, err
	}
	encoded, err := mode.Marshal(payload)
	if err != nil {
		return Key{}, err
	}
	return blake2b.Sum256(encoded), nil
}

// canonicalize converts a FluentValue into a CBOR-encodable plain Go
// value, charging one unit of budget per node visited (including each
// node of a Custom value's structure) so that pathological or cyclic
// caller-supplied objects can't hash forever.
func canonicalize(v values.Value, budget *int) (any, error) {
	if *budget <= 0 {
		return nil, ErrUnhashableArgs
	}
	*budget--

	switch v.Kind() {
	case values.KindNone:
		return nil, nil
	case values.KindBool:
		b, _ := v.Bool()
		return b, nil
	case values.KindInt:
		i, _ := v.Int()
		return i, nil
	case values.KindDecimal:
		f, frac, _ := v.DecimalVal()
		return [2]any{f, frac}, nil
	case values.KindString:
		s, _ := v.StringVal()
		return s, nil
	case values.KindDateTime:
		t, _ := v.DateTimeVal()
		return t.UnixNano(), nil
	case values.KindCustom:
		c, _ := v.CustomVal()
		return canonicalizeReflect(reflect.ValueOf(c), budget)
	default:
		return nil, nil
	}
}

// canonicalizeReflect structurally walks an arbitrary caller-supplied
// Custom value (maps, slices, structs, pointers, primitives) into a
// deterministic, CBOR-encodable shape. Map keys and struct fields are
// sorted by name so iteration order never affects the fingerprint.
func canonicalizeReflect(rv reflect.Value, budget *int) (any, error) {
	if *budget <= 0 {
		return nil, ErrUnhashableArgs
	}
	*budget--

	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return canonicalizeReflect(rv.Elem(), budget)
	case reflect.Map:
		keys := rv.MapKeys()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = fmtKey(k)
		}
		sort.Strings(names)
		out := make(map[string]any, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for _, k := range keys {
			byName[fmtKey(k)] = rv.MapIndex(k)
		}
		for _, name := range names {
			v, err := canonicalizeReflect(byName[name], budget)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := canonicalizeReflect(rv.Index(i), budget)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			v, err := canonicalizeReflect(rv.Field(i), budget)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		return out, nil
	default:
		return rv.Interface(), nil
	}
}

// fmtKey renders a map key as a string for stable sorting. Map keys are
// restricted by Go to comparable types (strings, numbers, bools,
// pointers, arrays of these); %v gives each a distinct, deterministic
// textual form without needing a kind-by-kind switch.
func fmtKey(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprintf("%v", rv.Interface())
}
