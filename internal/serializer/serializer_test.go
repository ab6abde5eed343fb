package serializer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opal-lang/fluentcore/internal/parser"
)

func TestSerializeRoundTripIsFixedPoint(t *testing.T) {
	sources := []string{
		"hello = Hello, { $name }!\n",
		"-brand = Acme\nwelcome = Welcome to { -brand }.\n",
		"count =\n    { $n ->\n        [one] One item\n       *[other] { $n } items\n    }\n",
		"# A comment\nfoo = bar\n    .attr = baz\n",
	}
	for _, src := range sources {
		res, perrs := parser.ParseDefault(src)
		if len(perrs) > 0 {
			t.Fatalf("unexpected parse errors for %q: %v", src, perrs)
		}
		once := Serialize(res)

		reparsed, perrs := parser.ParseDefault(once)
		if len(perrs) > 0 {
			t.Fatalf("re-parsing serialized output failed: %v", perrs)
		}
		twice := Serialize(reparsed)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("serialize is not a fixed point after one normalization pass (-once +twice):\n%s", diff)
		}
	}
}
