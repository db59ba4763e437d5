package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "/data/features")
		require.NoError(t, err, "Load")

		assert.Equal(t, "/data/features", cfg.Root)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, []string{".*", "node_modules"}, cfg.Ignore)
	})

	t.Run("file values are read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := `root: /configured/features
log:
  level: debug
  file: /var/log/margin.log
ignore:
  - tmp*
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		cfg, err := Load(path, "")
		require.NoError(t, err, "Load")

		assert.Equal(t, "/configured/features", cfg.Root)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "/var/log/margin.log", cfg.Log.File)
		assert.Equal(t, []string{"tmp*"}, cfg.Ignore)
	})

	t.Run("root flag beats file value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("root: /from/file\n"), 0o644))

		cfg, err := Load(path, "/from/flag")
		require.NoError(t, err, "Load")
		assert.Equal(t, "/from/flag", cfg.Root)
	})

	t.Run("missing root is rejected", func(t *testing.T) {
		_, err := Load("", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root directory is required")
	})

	t.Run("invalid yaml is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0o644))

		_, err := Load(path, "")
		require.Error(t, err)
	})
}
