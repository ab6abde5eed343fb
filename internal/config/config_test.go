package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxPlaceableDepth)
	assert.False(t, cfg.Strict)
}

func TestLoadOverridesOnlySetKeys(t *testing.T) {
	cfg, err := Load([]byte("strict: true\nmax_resolution_depth: 42\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 42, cfg.MaxResolutionDepth)
	assert.Equal(t, 100_000, cfg.MaxEntriesPerResource, "unset keys keep their default")
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load([]byte("not_a_real_key: 1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsNegativeLimit(t *testing.T) {
	_, err := Load([]byte("max_pattern_bytes: -1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsWrongType(t *testing.T) {
	_, err := Load([]byte("strict: \"yes\"\n"))
	assert.Error(t, err)
}
