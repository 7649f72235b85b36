package tempdir

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseRemovesDir(t *testing.T) {
	d, err := New("tempdir-test-*")
	require.NoError(t, err)

	_, err = os.Stat(d.Path())
	require.NoError(t, err)

	require.NoError(t, d.Release())

	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRetainDefersRemoval(t *testing.T) {
	d, err := New("tempdir-test-*")
	require.NoError(t, err)

	d.Retain()
	require.NoError(t, d.Release())

	// One reference remains, directory must survive.
	_, err = os.Stat(d.Path())
	require.NoError(t, err)

	require.NoError(t, d.Release())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))
}
