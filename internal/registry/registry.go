// Package registry implements FunctionRegistry (spec §3, §9): a
// database/sql-style registration table mapping an FTL function name to
// its call signature and Go callable, supporting freeze (immutable
// thereafter) and deep clone (returns an unfrozen copy with identical
// bindings). A Bundle does not clone: it gets its own registry from New
// seeded by RegisterBuiltins.
package registry

import (
	"errors"
	"sync"

	"github.com/opal-lang/fluentcore/internal/values"
)

// ErrFrozen is returned by Register once the registry has been frozen.
var ErrFrozen = errors.New("registry: frozen, no further registrations accepted")

// ErrInvalidName is returned when a function name does not match FTL's
// uppercase-dotted identifier convention (e.g. "NUMBER", "TIME.RELATIVE").
var ErrInvalidName = errors.New("registry: function names must be ALL_UPPERCASE (dots/underscores/hyphens/digits allowed)")

// Signature describes a function's expected call shape, used by the
// resolver to validate a FunctionReference before invoking it.
type Signature struct {
	// PositionalArity is the exact count of positional arguments
	// expected, or -1 if the function accepts any number.
	PositionalArity int
	// NamedParams lists the named-argument keys the function accepts;
	// any other named key passed at the call site is a resolution error.
	NamedParams []string
	// InjectLocale, when true, causes the resolver to pass the bundle's
	// locale chain as Func's locale parameter.
	InjectLocale bool
}

// Func is a registered FTL function's implementation. locale is nil
// unless the Signature requested InjectLocale.
type Func func(locale []string, positional []values.Value, named map[string]values.Value) (values.Value, error)

type binding struct {
	sig Signature
	fn  Func
}

// Registry holds registered functions with fine-grained locking so reads
// (function lookups during resolution) never contend with each other.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]binding
	frozen  bool
}

// New returns an empty, unfrozen registry.
func New() *Registry {
	return &Registry{entries: make(map[string]binding)}
}

// Register adds or replaces a function binding. It fails once the
// registry is frozen, or if name isn't a valid FTL function identifier.
func (r *Registry) Register(name string, sig Signature, fn Func) error {
	if !isValidFunctionName(name) {
		return ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	r.entries[name] = binding{sig: sig, fn: fn}
	return nil
}

// Lookup retrieves a function's signature and callable by name.
func (r *Registry) Lookup(name string) (Signature, Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.entries[name]
	if !ok {
		return Signature{}, nil, false
	}
	return b.sig, b.fn, true
}

// Freeze makes the registry immutable; subsequent Register calls fail.
// A frozen registry may be shared across goroutines without additional
// locking on the read path (spec §5 "FunctionRegistry is either frozen
// ... or guarded by the bundle lock").
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Clone returns a new, unfrozen registry with the same bindings. Mutating
// the clone (or the original) afterwards does not affect the other.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := New()
	for name, b := range r.entries {
		out.entries[name] = b
	}
	return out
}

func isValidFunctionName(name string) bool {
	if name == "" {
		return false
	}
	if !('A' <= name[0] && name[0] <= 'Z') {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return false
		}
	}
	return true
}
