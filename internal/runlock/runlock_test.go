package runlock

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_ExclusiveWithinProcess(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "sync.lock"))

	release, err := l.TryAcquire()
	require.NoError(t, err)

	_, err = l.TryAcquire()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release())
	require.NoError(t, release(), "release is idempotent")

	release, err = l.TryAcquire()
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestLock_ExclusiveAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sync.lock")
	a, b := New(path), New(path)

	release, err := a.TryAcquire()
	require.NoError(t, err)
	defer release()

	_, err = b.TryAcquire()
	assert.True(t, errors.Is(err, ErrLocked), "second lock on the same file must fail, got %v", err)
}
