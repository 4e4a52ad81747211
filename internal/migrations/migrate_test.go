package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_create_profiles.up.sql",
		"000001_create_profiles.down.sql",
		"000012_add_index.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000099_nested"), 0o755))

	assert.Equal(t, int64(12), findLatestMigrationVersion(dir))
}

func TestFindLatestMigrationVersionMissingDir(t *testing.T) {
	assert.Equal(t, int64(0), findLatestMigrationVersion(filepath.Join(t.TempDir(), "nope")))
}

func TestRepositoryMigrationsAreVersioned(t *testing.T) {
	assert.Equal(t, int64(1), findLatestMigrationVersion(filepath.Join("..", "..", "migrations")))
}

func TestRunMigrationsRequiresURL(t *testing.T) {
	err := RunMigrations("", "migrations", zap.NewNop())
	assert.Error(t, err)
}
