package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultURI, cfg.Neo4j.URI)
	assert.Equal(t, DefaultUser, cfg.Neo4j.User)
	assert.Equal(t, "upsert", cfg.LoadingMode)
	assert.Equal(t, DefaultMaxViolations, cfg.MaxViolations)
	assert.Equal(t, DefaultValidationLogDir, cfg.ValidationLogDir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigSection(t *testing.T) {
	resetViper(t)

	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(`
config:
  neo4j:
    uri: bolt://db.example.org:7687/
    user: loader
  loading_mode: NEW
  max_violations: 5
  split_transactions: true
  backup_folder: /tmp/backups
`)))

	cfg, err := Load()
	require.NoError(t, err)

	// Trailing slash removed, section unwrapped.
	assert.Equal(t, "bolt://db.example.org:7687", cfg.Neo4j.URI)
	assert.Equal(t, "loader", cfg.Neo4j.User)
	assert.Equal(t, "NEW", cfg.LoadingMode)
	assert.Equal(t, 5, cfg.MaxViolations)
	assert.True(t, cfg.SplitTransactions)
}

func TestPasswordEnv(t *testing.T) {
	resetViper(t)
	t.Setenv(PasswordEnv, "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
}

func TestNormalizeResolvesPropFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "props.yml"), []byte("Properties:\n"), 0o644))

	cfg := &Config{Dataset: dir, PropFile: "props.yml"}
	cfg.Normalize()

	assert.Equal(t, filepath.Join(dir, "props.yml"), cfg.PropFile)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := func() *Config {
		c := &Config{
			Dataset:      dir,
			Schema:       []string{"model.yml"},
			PropFile:     "props.yml",
			BackupFolder: "/tmp/backups",
		}
		c.Normalize()
		return c
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing dataset", func(t *testing.T) {
		c := valid()
		c.Dataset = ""
		assert.Error(t, c.Validate())
	})

	t.Run("dataset not a directory", func(t *testing.T) {
		file := filepath.Join(dir, "data.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		c := valid()
		c.Dataset = file
		assert.Error(t, c.Validate())
	})

	t.Run("missing schema", func(t *testing.T) {
		c := valid()
		c.Schema = nil
		assert.Error(t, c.Validate())
	})

	t.Run("missing prop file", func(t *testing.T) {
		c := valid()
		c.PropFile = ""
		assert.Error(t, c.Validate())
	})

	t.Run("bad loading mode", func(t *testing.T) {
		c := valid()
		c.LoadingMode = "replace"
		assert.Error(t, c.Validate())
	})

	t.Run("bad repoint policy", func(t *testing.T) {
		c := valid()
		c.RepointPolicy = "ignore"
		assert.Error(t, c.Validate())
	})

	t.Run("split without backup", func(t *testing.T) {
		c := valid()
		c.SplitTransactions = true
		c.NoBackup = true
		assert.Error(t, c.Validate())
	})

	t.Run("backup folder required", func(t *testing.T) {
		c := valid()
		c.BackupFolder = ""
		assert.Error(t, c.Validate())
	})

	t.Run("no backup skips folder requirement", func(t *testing.T) {
		c := valid()
		c.BackupFolder = ""
		c.NoBackup = true
		assert.NoError(t, c.Validate())
	})
}

func TestModeAndRepoint(t *testing.T) {
	c := &Config{LoadingMode: "DELETE", RepointPolicy: "fail"}
	assert.Equal(t, "delete", string(c.Mode()))
	assert.Equal(t, "fail", string(c.Repoint()))

	c = &Config{}
	c.Normalize()
	assert.Equal(t, "upsert", string(c.Mode()))
	assert.Equal(t, "replace", string(c.Repoint()))
}
