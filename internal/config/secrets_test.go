package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	origDir := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = origDir })

	t.Run("trims whitespace around the secret", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "db_password"), []byte("  s3cret\n"), 0600))

		got, err := readSecret("db_password")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := readSecret("no_such_secret")
		assert.Error(t, err)
	})

	t.Run("empty file is an error", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "blank"), []byte("   \n"), 0600))

		_, err := readSecret("blank")
		assert.ErrorContains(t, err, "is empty")
	})
}
