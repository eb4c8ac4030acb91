package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Override Tests
// =============================================================================

func TestParseOverride_Number(t *testing.T) {
	o, err := ParseOverride("12.5")
	require.NoError(t, err)

	hours, fixed := o.Duration()
	assert.True(t, fixed)
	assert.Equal(t, 12.5, hours)
	assert.False(t, o.IsDisallowed())
}

func TestParseOverride_MarkerIsCaseInsensitive(t *testing.T) {
	for _, s := range []string{"x", "X", " x "} {
		o, err := ParseOverride(s)
		require.NoError(t, err, s)
		assert.True(t, o.IsDisallowed(), s)
		_, fixed := o.Duration()
		assert.False(t, fixed, s)
	}
}

func TestParseOverride_Invalid(t *testing.T) {
	_, err := ParseOverride("soon")
	assert.ErrorIs(t, err, ErrInvalidOverride)

	_, err = ParseOverride("-3")
	assert.ErrorIs(t, err, ErrInvalidOverride)
}

func TestOverride_ZeroValue(t *testing.T) {
	var o Override
	assert.Equal(t, OverrideNone, o.Kind())
	assert.False(t, o.IsDisallowed())
	_, fixed := o.Duration()
	assert.False(t, fixed)
	assert.Equal(t, "", o.String())
}

func TestOverride_JSON(t *testing.T) {
	in := map[string]Override{
		"T1": FixedDuration(30),
		"T2": Disallowed(),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"T1":30,"T2":"x"}`, string(data))

	var out map[string]Override
	require.NoError(t, json.Unmarshal([]byte(`{"T1":30,"T2":"X","T3":"8"}`), &out))
	assert.Equal(t, FixedDuration(30), out["T1"])
	assert.Equal(t, Disallowed(), out["T2"])
	assert.Equal(t, FixedDuration(8), out["T3"])
}

func TestOverride_JSONRejectsGarbage(t *testing.T) {
	var o Override
	assert.ErrorIs(t, json.Unmarshal([]byte(`true`), &o), ErrInvalidOverride)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"maybe"`), &o), ErrInvalidOverride)
}
