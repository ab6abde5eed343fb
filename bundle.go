// Package fluentcore is the library surface (spec §6): parse, serialize,
// validate, and a Bundle that ties together the function registry,
// parsed resources, dependency graph, resolver, and integrity cache
// behind a single RWLock-guarded handle.
package fluentcore

import (
	"time"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/cache"
	"github.com/opal-lang/fluentcore/internal/diagnostics"
	"github.com/opal-lang/fluentcore/internal/graph"
	"github.com/opal-lang/fluentcore/internal/parser"
	"github.com/opal-lang/fluentcore/internal/registry"
	"github.com/opal-lang/fluentcore/internal/resolver"
	"github.com/opal-lang/fluentcore/internal/rwlock"
	"github.com/opal-lang/fluentcore/internal/serializer"
	"github.com/opal-lang/fluentcore/internal/validate"
	"github.com/opal-lang/fluentcore/internal/values"
)

// Re-exported so callers never need to import internal packages directly.
type (
	Resource            = ast.Resource
	ParseError          = ast.ParseError
	ValidationError     = validate.Error
	ResolutionError     = resolver.Error
	Value               = values.Value
	Signature           = registry.Signature
	Func                = registry.Func
	DiagnosticsRecorder = diagnostics.Recorder
	DiagnosticsReport   = diagnostics.Report
)

// NewDiagnosticsRecorder returns an empty DiagnosticsRecorder, ready to
// be passed to Bundle.EnableDiagnostics.
func NewDiagnosticsRecorder() *DiagnosticsRecorder { return diagnostics.NewRecorder() }

// Value constructors, re-exported so callers can build FormatPattern
// arguments without importing internal/values directly.
var (
	NoneValue      = values.None
	Bool           = values.Bool
	Int            = values.Int
	Decimal        = values.Decimal
	DecimalDisplay = values.DecimalDisplay
	String         = values.String
	DateTime       = values.DateTime
	CustomValue    = values.Custom
)

// Parse implements the library's parse(source) -> (Resource, errors).
func Parse(source string) (*Resource, []*ParseError) {
	return parser.ParseDefault(source)
}

// Serialize implements serialize(resource) -> str.
func Serialize(r *Resource) string {
	return serializer.Serialize(r)
}

// ValidateResource implements validate_resource(resource, ctx?) -> errors
// in isolation, without a Bundle's cross-resource index.
func ValidateResource(r *Resource) []*ValidationError {
	return validate.Resource(r, nil)
}

// Config bounds every DoS-hardening limit named in spec §6, threaded
// through the parser, resolver, and cache.
type Config struct {
	MaxPlaceableDepth     int
	MaxEntriesPerResource int
	MaxPatternBytes       int
	MaxResolutionDepth    int
	MaxExpansionBytes     int
	CacheMaxEntries       int
	CacheMaxBytes         int
	HashNodeBudget        int
	Strict                bool
}

// DefaultConfig returns the defaults enumerated in spec §6.
func DefaultConfig() Config {
	return Config{
		MaxPlaceableDepth:     100,
		MaxEntriesPerResource: 100_000,
		MaxPatternBytes:       1 << 20,
		MaxResolutionDepth:    100,
		MaxExpansionBytes:     10 << 20,
		CacheMaxEntries:       10_000,
		CacheMaxBytes:         100 << 20,
		HashNodeBudget:        10_000,
		Strict:                false,
	}
}

// Bundle owns a locale chain, its parsed resources, an id -> Entry index,
// a generation counter, a FunctionRegistry, and an IntegrityCache, all
// guarded by one RWLock (spec §4.7, §5). Parse/Serialize/ValidateResource
// are pure and may run concurrently with a Bundle without coordination;
// only Bundle's own methods need the lock.
type Bundle struct {
	lock *rwlock.RWLock

	localeChain []string
	resources   []*Resource
	index       map[string]ast.Entry
	generation  uint64
	functions   *registry.Registry
	frozen      bool
	strict      bool
	cfg         Config

	cache       *cache.Cache[cache.StringResult]
	diagnostics *diagnostics.Recorder
}

// New constructs a Bundle for localeChain (most-specific first), seeded
// with the builtin NUMBER/DATETIME/CURRENCY functions, using cfg's
// limits. The bundle starts unfrozen: AddResource and RegisterFunction
// remain available until Freeze is called.
func New(localeChain []string, cfg Config) (*Bundle, error) {
	r := registry.New()
	if err := registry.RegisterBuiltins(r); err != nil {
		return nil, err
	}
	b := &Bundle{
		lock:        rwlock.New(),
		localeChain: append([]string(nil), localeChain...),
		index:       make(map[string]ast.Entry),
		functions:   r,
		strict:      cfg.Strict,
		cfg:         cfg,
		cache:       cache.New[cache.StringResult](cfg.CacheMaxEntries, cfg.CacheMaxBytes),
	}
	return b, nil
}

// NewDefault constructs a Bundle with DefaultConfig.
func NewDefault(localeChain []string) (*Bundle, error) {
	return New(localeChain, DefaultConfig())
}

var (
	// ErrFrozen is returned by AddResource/RegisterFunction once Freeze
	// has been called.
	ErrFrozen = registry.ErrFrozen
)

// AddResource parses source, validates it against the bundle's existing
// index, then adds its entries to the index and bumps the generation;
// validation errors are reported but never block insertion. Parse errors
// and validation errors are both returned; a Resource with parse errors
// is still added (Junk entries simply contribute no lookups), matching
// the parser's own recoverable-error philosophy.
func (b *Bundle) AddResource(source string) (*Resource, []*ParseError, []*ValidationError, error) {
	popts := parser.Options{
		MaxPlaceableDepth:     b.cfg.MaxPlaceableDepth,
		MaxEntriesPerResource: b.cfg.MaxEntriesPerResource,
		MaxPatternBytes:       b.cfg.MaxPatternBytes,
	}
	res, perrs := parser.Parse(source, popts)

	tok := rwlock.NewToken()
	if err := b.lock.Lock(tok); err != nil {
		return nil, nil, nil, err
	}
	defer b.lock.Unlock(tok)

	if b.frozen {
		return res, perrs, nil, ErrFrozen
	}

	crossIdx := make(validate.Index, len(b.index))
	for name, e := range b.index {
		crossIdx[name] = e
	}
	verrs := validate.Resource(res, crossIdx)

	for _, e := range res.Entries {
		switch v := e.(type) {
		case *ast.Message:
			b.index["msg:"+v.ID] = v
		case *ast.Term:
			b.index["term:-"+v.ID] = v
		}
	}
	b.resources = append(b.resources, res)
	b.generation++
	b.cache.BumpGeneration()

	return res, perrs, verrs, nil
}

// RegisterFunction adds or replaces a custom FTL function, bumping the
// generation since it can change future resolution outcomes.
func (b *Bundle) RegisterFunction(name string, sig Signature, fn Func) error {
	tok := rwlock.NewToken()
	if err := b.lock.Lock(tok); err != nil {
		return err
	}
	defer b.lock.Unlock(tok)

	if b.frozen {
		return ErrFrozen
	}
	if err := b.functions.Register(name, sig, fn); err != nil {
		return err
	}
	b.generation++
	b.cache.BumpGeneration()
	return nil
}

// Freeze makes the bundle immutable to further AddResource/RegisterFunction
// calls and freezes the FunctionRegistry so its read path no longer needs
// the bundle lock (spec §5 "FunctionRegistry is either frozen ... or
// guarded by the bundle lock").
func (b *Bundle) Freeze() error {
	tok := rwlock.NewToken()
	if err := b.lock.Lock(tok); err != nil {
		return err
	}
	defer b.lock.Unlock(tok)
	b.frozen = true
	b.functions.Freeze()
	return nil
}

// ClearCache discards every cached resolved output without otherwise
// touching resources or functions (spec "explicit clear_all_caches root
// entry point").
func (b *Bundle) ClearCache() {
	b.cache.BumpGeneration()
}

// Generation reports the bundle's current generation counter, bumped by
// every AddResource and RegisterFunction call. ClearCache does not change
// it; it only empties the cache.
func (b *Bundle) Generation() uint64 {
	tok := rwlock.NewToken()
	b.lock.RLock(tok)
	defer b.lock.RUnlock(tok)
	return b.generation
}

// lookup implements resolver.EntryLookup against the bundle's index
// under the caller's already-held read lock.
type lookup struct{ b *Bundle }

func (l lookup) LookupMessage(id string) (*ast.Message, bool) {
	e, ok := l.b.index["msg:"+id]
	if !ok {
		return nil, false
	}
	m, ok := e.(*ast.Message)
	return m, ok
}

func (l lookup) LookupTerm(id string) (*ast.Term, bool) {
	e, ok := l.b.index["term:-"+id]
	if !ok {
		return nil, false
	}
	t, ok := e.(*ast.Term)
	return t, ok
}

// FormatPattern implements format_pattern(id, attr?, args) -> (str,
// errors), consulting the integrity cache first and falling back to the
// resolver on a miss. Bool-valued and string-valued args are passed
// through Value.FormatToString's coercion boundary unchanged; callers
// build args with the values package's constructors.
func (b *Bundle) FormatPattern(id, attr string, args map[string]Value) (string, []*ResolutionError) {
	start := time.Now()
	readTok := rwlock.NewToken()
	b.lock.RLock(readTok)
	locale := append([]string(nil), b.localeChain...)
	strict := b.strict
	gen := b.generation
	fns := b.functions
	diag := b.diagnostics
	lk := lookup{b: b}
	defer b.lock.RUnlock(readTok)

	defer func() {
		if diag != nil {
			diag.RecordCall(id, time.Since(start))
		}
	}()

	key, err := cache.ComputeKey(id, attr, args, locale, gen, b.cfg.HashNodeBudget)
	if err != nil {
		// Unhashable argument set: bypass the cache entirely rather than
		// fail the call (spec §4.5 "bypasses caching").
		return b.resolve(id, attr, args, locale, strict, fns, lk)
	}

	res, cerr := b.cache.GetOrCompute(key, func() (cache.StringResult, error) {
		text, errs := b.resolve(id, attr, args, locale, strict, fns, lk)
		return cache.StringResult{Text: text, Errors: toErrorRecords(errs)}, nil
	})
	if cerr != nil {
		// CacheCorruptionError (spec §7 Integrity taxonomy): surfaced, never
		// silently absorbed by returning the stale/divergent value.
		return res.Text, []*ResolutionError{{Kind: "CacheCorruption", Message: cerr.Error(), EntryID: id}}
	}
	return res.Text, fromErrorRecords(res.Errors)
}

// EnableDiagnostics turns on the optional diagnostics channel (spec §6):
// every subsequent FormatPattern call is timed and tallied into rec.
func (b *Bundle) EnableDiagnostics(rec *DiagnosticsRecorder) {
	tok := rwlock.NewToken()
	_ = b.lock.Lock(tok)
	defer b.lock.Unlock(tok)
	b.diagnostics = rec
}

func (b *Bundle) resolve(id, attr string, args map[string]Value, locale []string, strict bool, fns *registry.Registry, lk lookup) (string, []*ResolutionError) {
	r := &resolver.Resolver{
		Lookup:    lk,
		Functions: fns,
		Locale:    locale,
		Strict:    strict,
		Opts:      resolver.Options{MaxResolutionDepth: b.cfg.MaxResolutionDepth, MaxExpansionBytes: b.cfg.MaxExpansionBytes},
	}
	return r.FormatPattern(id, attr, args)
}

func toErrorRecords(errs []*ResolutionError) []cache.ErrorRecord {
	if len(errs) == 0 {
		return nil
	}
	out := make([]cache.ErrorRecord, len(errs))
	for i, e := range errs {
		out[i] = cache.ErrorRecord{Kind: string(e.Kind), Message: e.Message, EntryID: e.EntryID}
	}
	return out
}

func fromErrorRecords(recs []cache.ErrorRecord) []*ResolutionError {
	if len(recs) == 0 {
		return nil
	}
	out := make([]*ResolutionError, len(recs))
	for i, r := range recs {
		out[i] = &ResolutionError{Kind: resolver.ErrorKind(r.Kind), Message: r.Message, EntryID: r.EntryID}
	}
	return out
}

// DependencyGraph rebuilds the bundle's cross-resource reference graph
// on demand (spec §4.3); it is not cached since AddResource already pays
// for cycle detection once at insertion time via validate.Resource — this
// entry point exists for callers (tooling, diagnostics) that want the
// graph itself rather than just the cycle report.
func (b *Bundle) DependencyGraph() *graph.Graph {
	tok := rwlock.NewToken()
	b.lock.RLock(tok)
	defer b.lock.RUnlock(tok)
	entries := make(map[string]ast.Entry, len(b.index))
	for name, e := range b.index {
		entries[name] = e
	}
	return graph.Build(entries)
}
