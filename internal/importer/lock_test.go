package importer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seward/zeeklite/pkg/types"
)

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.lock")

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	require.NotNil(t, lock)

	require.NoError(t, lock.Release())
}

func TestAcquireLock_Reacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.lock")

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	// Released locks can be taken again
	lock, err = AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestAcquireLock_BadPath(t *testing.T) {
	_, err := AcquireLock("/nonexistent/dir/import.lock")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrRunLocked)
}
