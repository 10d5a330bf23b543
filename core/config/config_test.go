package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir from Go 1.24, reimplemented for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadPrecedence(t *testing.T) {
	t.Run("flags beat environment", func(t *testing.T) {
		t.Setenv(EnvLibraryID, "111")
		cfg, err := Load(Flags{LibraryID: "222"})
		require.NoError(t, err)
		assert.Equal(t, "222", cfg.LibraryID)
	})

	t.Run("environment used when flag empty", func(t *testing.T) {
		t.Setenv(EnvLibraryID, "111")
		t.Setenv(EnvAPIKey, "secret")
		cfg, err := Load(Flags{})
		require.NoError(t, err)
		assert.Equal(t, "111", cfg.LibraryID)
		assert.Equal(t, "secret", cfg.APIKey)
	})

	t.Run("config file used when flag and env empty", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, ConfigDirName), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigDirName, "library"), []byte("333\n"), 0o644))
		chdir(t, dir)

		cfg, err := Load(Flags{})
		require.NoError(t, err)
		assert.Equal(t, "333", cfg.LibraryID)
	})

	t.Run("defaults apply last", func(t *testing.T) {
		chdir(t, t.TempDir())
		cfg, err := Load(Flags{})
		require.NoError(t, err)
		assert.Equal(t, "user", cfg.LibraryType)
		assert.Equal(t, defaultTimeoutSeconds, cfg.TimeoutSeconds)
	})

	t.Run("invalid library type rejected", func(t *testing.T) {
		_, err := Load(Flags{LibraryType: "shared"})
		assert.Error(t, err)
	})
}

func TestRequireAccessors(t *testing.T) {
	t.Run("missing library id", func(t *testing.T) {
		cfg := &Config{}
		_, err := cfg.RequireLibraryID()
		var missing *MissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "Library ID", missing.Setting)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := &Config{}
		_, err := cfg.RequireAPIKey()
		var missing *MissingError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("bbt database must exist on disk", func(t *testing.T) {
		cfg := &Config{BBTDatabase: filepath.Join(t.TempDir(), "missing.sqlite")}
		_, err := cfg.RequireBBTDatabase()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bbt database path returned when present", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "better-bibtex.sqlite")
		require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
		cfg := &Config{BBTDatabase: path}
		got, err := cfg.RequireBBTDatabase()
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})
}
