package parser

// Options are the DoS-hardening bounds from spec §4.1 and §6. Exceeding
// MaxPlaceableDepth or MaxPatternBytes truncates the current entry into
// Junk with a LimitExceeded annotation; parsing of the resource continues.
// Reaching MaxEntriesPerResource instead stops parsing with a
// LimitExceeded error: the remaining source is not turned into entries,
// not even Junk.
type Options struct {
	MaxPlaceableDepth     int
	MaxEntriesPerResource int
	MaxPatternBytes       int
}

// DefaultOptions returns the defaults named in spec §6.
func DefaultOptions() Options {
	return Options{
		MaxPlaceableDepth:     100,
		MaxEntriesPerResource: 100_000,
		MaxPatternBytes:       1 << 20, // 1 MiB
	}
}
