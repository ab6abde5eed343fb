// Package config loads and validates the configuration keys enumerated
// in spec §6 from YAML, grounded on the teacher's JSON-Schema-backed
// validation layer (core/types/validation.go): the YAML document is
// decoded generically, re-marshaled to JSON, and checked against a
// schema before being unmarshaled into the typed Config.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	fluentcore "github.com/opal-lang/fluentcore"
)

// schemaDoc mirrors spec §6's configuration keys, each with a sensible
// minimum to catch obviously-wrong values (e.g. a negative byte budget)
// before they reach the engine. It carries no defaults; keys absent from
// the document keep the values of fluentcore.DefaultConfig.
const schemaDoc = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"max_placeable_depth":     {"type": "integer", "minimum": 1},
		"max_entries_per_resource": {"type": "integer", "minimum": 1},
		"max_pattern_bytes":       {"type": "integer", "minimum": 1},
		"max_resolution_depth":    {"type": "integer", "minimum": 1},
		"max_expansion_bytes":     {"type": "integer", "minimum": 1},
		"cache_max_entries":       {"type": "integer", "minimum": 0},
		"cache_max_bytes":         {"type": "integer", "minimum": 0},
		"hash_node_budget":        {"type": "integer", "minimum": 1},
		"strict":                  {"type": "boolean"}
	}
}`

var compiled *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiled != nil {
		return compiled, nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema://fluentcore-config.json", strings.NewReader(schemaDoc)); err != nil {
		return nil, err
	}
	s, err := compiler.Compile("schema://fluentcore-config.json")
	if err != nil {
		return nil, err
	}
	compiled = s
	return s, nil
}

// yamlKeys is the wire shape the YAML document is decoded into before
// schema validation and before being folded onto fluentcore.DefaultConfig
// (unset keys keep their default rather than zeroing out).
type yamlKeys struct {
	MaxPlaceableDepth     *int  `yaml:"max_placeable_depth"`
	MaxEntriesPerResource *int  `yaml:"max_entries_per_resource"`
	MaxPatternBytes       *int  `yaml:"max_pattern_bytes"`
	MaxResolutionDepth    *int  `yaml:"max_resolution_depth"`
	MaxExpansionBytes     *int  `yaml:"max_expansion_bytes"`
	CacheMaxEntries       *int  `yaml:"cache_max_entries"`
	CacheMaxBytes         *int  `yaml:"cache_max_bytes"`
	HashNodeBudget        *int  `yaml:"hash_node_budget"`
	Strict                *bool `yaml:"strict"`
}

// Load parses YAML config text, validates it against the configuration
// schema, and returns a fluentcore.Config with fluentcore.DefaultConfig
// values for any key the document leaves unset.
func Load(yamlText []byte) (fluentcore.Config, error) {
	cfg := fluentcore.DefaultConfig()

	var generic map[string]any
	if err := yaml.Unmarshal(yamlText, &generic); err != nil {
		return cfg, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if generic == nil {
		return cfg, nil
	}

	asJSON, err := json.Marshal(generic)
	if err != nil {
		return cfg, fmt.Errorf("config: re-marshaling to json: %w", err)
	}
	var asAny any
	if err := json.Unmarshal(asJSON, &asAny); err != nil {
		return cfg, fmt.Errorf("config: decoding json for validation: %w", err)
	}

	s, err := schema()
	if err != nil {
		return cfg, fmt.Errorf("config: compiling schema: %w", err)
	}
	if err := s.Validate(asAny); err != nil {
		return cfg, fmt.Errorf("config: schema validation failed: %w", err)
	}

	var keys yamlKeys
	if err := yaml.Unmarshal(yamlText, &keys); err != nil {
		return cfg, fmt.Errorf("config: decoding typed keys: %w", err)
	}
	apply(&cfg, keys)
	return cfg, nil
}

func apply(cfg *fluentcore.Config, k yamlKeys) {
	if k.MaxPlaceableDepth != nil {
		cfg.MaxPlaceableDepth = *k.MaxPlaceableDepth
	}
	if k.MaxEntriesPerResource != nil {
		cfg.MaxEntriesPerResource = *k.MaxEntriesPerResource
	}
	if k.MaxPatternBytes != nil {
		cfg.MaxPatternBytes = *k.MaxPatternBytes
	}
	if k.MaxResolutionDepth != nil {
		cfg.MaxResolutionDepth = *k.MaxResolutionDepth
	}
	if k.MaxExpansionBytes != nil {
		cfg.MaxExpansionBytes = *k.MaxExpansionBytes
	}
	if k.CacheMaxEntries != nil {
		cfg.CacheMaxEntries = *k.CacheMaxEntries
	}
	if k.CacheMaxBytes != nil {
		cfg.CacheMaxBytes = *k.CacheMaxBytes
	}
	if k.HashNodeBudget != nil {
		cfg.HashNodeBudget = *k.HashNodeBudget
	}
	if k.Strict != nil {
		cfg.Strict = *k.Strict
	}
}
