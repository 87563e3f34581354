package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGroqRequiresAPIKey(t *testing.T) {
	_, err := NewGroq("", "llama-3.3-70b-versatile")
	assert.Error(t, err)
}

func TestNewGroq(t *testing.T) {
	g, err := NewGroq("test-key", "llama-3.3-70b-versatile")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", g.model)
}
