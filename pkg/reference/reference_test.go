package reference

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	ref, err := New()
	require.NoError(t, err)

	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "ST", parts[0])
	assert.Equal(t, time.Now().Format("20060102"), parts[1])
	assert.Len(t, parts[2], suffixLength)

	for _, c := range parts[2] {
		assert.Contains(t, alphabet, string(c))
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref, err := New()
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
