package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesLookup(t *testing.T) {
	var empty Names
	_, ok := empty.Lookup(0)
	require.False(t, ok)

	names := Names{0: "license_plate"}
	name, ok := names.Lookup(0)
	require.True(t, ok)
	require.Equal(t, "license_plate", name)

	_, ok = names.Lookup(3)
	require.False(t, ok)
}

func TestDetectionHasClass(t *testing.T) {
	require.True(t, Detection{Class: 0}.HasClass())
	require.False(t, Detection{Class: NoClass}.HasClass())
}
