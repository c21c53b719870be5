package eino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	require.NotNil(t, Handler())
	require.NotNil(t, Handler())

	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
