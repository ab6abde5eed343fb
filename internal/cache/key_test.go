package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/fluentcore/internal/values"
)

func TestComputeKeyDeterministic(t *testing.T) {
	args := map[string]values.Value{
		"name":  values.String("Ed"),
		"count": values.Int(3),
	}
	k1, err := ComputeKey("greeting", "", args, []string{"en"}, 1, DefaultHashNodeBudget)
	require.NoError(t, err)
	k2, err := ComputeKey("greeting", "", args, []string{"en"}, 1, DefaultHashNodeBudget)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestComputeKeyDiffersByGeneration(t *testing.T) {
	args := map[string]values.Value{"name": values.String("Ed")}
	k1, err := ComputeKey("greeting", "", args, []string{"en"}, 1, DefaultHashNodeBudget)
	require.NoError(t, err)
	k2, err := ComputeKey("greeting", "", args, []string{"en"}, 2, DefaultHashNodeBudget)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestComputeKeyArgOrderIndependent(t *testing.T) {
	a := map[string]values.Value{"a": values.Int(1), "b": values.Int(2)}
	b := map[string]values.Value{"b": values.Int(2), "a": values.Int(1)}
	ka, err := ComputeKey("m", "", a, nil, 0, DefaultHashNodeBudget)
	require.NoError(t, err)
	kb, err := ComputeKey("m", "", b, nil, 0, DefaultHashNodeBudget)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestComputeKeyCustomStructCanonicalized(t *testing.T) {
	type profile struct {
		Name string
		Tags map[string]int
	}
	v1 := values.Custom(profile{Name: "a", Tags: map[string]int{"x": 1, "y": 2}})
	v2 := values.Custom(profile{Name: "a", Tags: map[string]int{"y": 2, "x": 1}})
	k1, err := ComputeKey("m", "", map[string]values.Value{"p": v1}, nil, 0, DefaultHashNodeBudget)
	require.NoError(t, err)
	k2, err := ComputeKey("m", "", map[string]values.Value{"p": v2}, nil, 0, DefaultHashNodeBudget)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "map key iteration order must not change the fingerprint")
}

func TestComputeKeyCustomNonStringMapKeys(t *testing.T) {
	v := values.Custom(map[int]string{1: "a", 2: "b"})
	_, err := ComputeKey("m", "", map[string]values.Value{"p": v}, nil, 0, DefaultHashNodeBudget)
	assert.NoError(t, err, "non-string map keys must not panic fmtKey")
}

func TestComputeKeyExhaustsBudget(t *testing.T) {
	big := make(map[string]int, 50)
	for i := 0; i < 50; i++ {
		big[string(rune('a'+i%26))+string(rune('0'+i/26))] = i
	}
	v := values.Custom(big)
	_, err := ComputeKey("m", "", map[string]values.Value{"p": v}, nil, 0, 5)
	assert.ErrorIs(t, err, ErrUnhashableArgs)
}
