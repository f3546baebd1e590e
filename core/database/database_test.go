package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "media", SSLMode: "disable"}

	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=media sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:pw@db:5432/media?sslmode=disable", cfg.URL())
}

func TestUpFilesAndAppliedBetween(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.up.sql"), 0o700))

	files := upFiles(dir)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, files)

	assert.Equal(t, uint64(2), fileVersion("0002_b.up.sql"))
	assert.Zero(t, fileVersion("bogus.up.sql"))

	assert.Equal(t, []string{"0002_b.up.sql"}, appliedBetween(files, 1, 2))
	assert.Empty(t, appliedBetween(files, 2, 2))
	assert.Nil(t, upFiles(filepath.Join(dir, "missing")))
}

func TestMigrationsDirDefaults(t *testing.T) {
	dir, err := migrationsDir(Config{})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, DefaultMigrationsDir, filepath.Base(dir))
}
