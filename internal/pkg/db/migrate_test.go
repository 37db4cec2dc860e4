package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestVersion(t *testing.T) {
	version, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}
