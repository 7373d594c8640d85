package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyring(t *testing.T) {
	k := NewFile(t.TempDir())

	_, err := k.Get(IMAPPasswordKey)
	require.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, k.Set(IMAPPasswordKey, "hunter2"))

	got, err := k.Get(IMAPPasswordKey)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	lookup := k.Lookup(IMAPPasswordKey)
	require.NoError(t, k.Set(IMAPPasswordKey, "rotated"))
	got, err = lookup()
	require.NoError(t, err)
	assert.Equal(t, "rotated", got)

	require.NoError(t, k.Delete(IMAPPasswordKey))
	_, err = k.Get(IMAPPasswordKey)
	assert.ErrorIs(t, err, ErrNotSet)
}

func TestFileKeyringPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFile(dir).Set("other", "value"))

	got, err := NewFile(dir).Get("other")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}
