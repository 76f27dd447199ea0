package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/offerdb/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "offerdb", cmd.Use)
	assert.Contains(t, cmd.Long, "offer store")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"},
		{"check"},
		{"offers", "list"},
		{"offers", "count"},
		{"offers", "get"},
		{"offers", "add"},
		{"offers", "delete"},
		{"offers", "status"},
		{"manifest"},
		{"sweep"},
		{"refdata", "countries"},
		{"refdata", "currencies"},
		{"refdata", "payments"},
		{"filters", "list"},
		{"filters", "add"},
		{"filters", "delete"},
		{"backup"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestOffersCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"offers", "list"})
	require.NoError(t, err)

	setFlag := listCmd.InheritedFlags().Lookup("set")
	require.NotNil(t, setFlag)
	assert.Equal(t, "sell", setFlag.DefValue)

	for _, name := range []string{"country", "currency", "payment", "type", "status", "limit", "offset"} {
		assert.NotNil(t, listCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "check"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResolve_ConfigAndOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "offerdb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database:
  path: data/offers.db
log:
  level: warn
  format: json
`), 0o644))

	opts := &RootOptions{ConfigPath: cfgPath}
	require.NoError(t, opts.resolve(&bytes.Buffer{}))
	assert.Equal(t, filepath.Join(dir, "data", "offers.db"), opts.Config.Database.Path)
	assert.Equal(t, "json", opts.Config.Log.Format)
	require.NotNil(t, opts.Logger)

	opts = &RootOptions{ConfigPath: cfgPath, Database: "other.db"}
	require.NoError(t, opts.resolve(&bytes.Buffer{}))
	assert.Equal(t, "other.db", opts.Config.Database.Path)
}

func TestResolve_MissingConfig(t *testing.T) {
	opts := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}
	err := opts.resolve(&bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewLogger(t *testing.T) {
	t.Run("json handler", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := newLogger(buf, config.Log{Level: "info", Format: "json"}, false)
		require.NoError(t, err)

		logger.Info("store ready", "version", 3)
		assert.Contains(t, buf.String(), `"msg":"store ready"`)
		assert.Contains(t, buf.String(), `"version":3`)
	})

	t.Run("level filters", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := newLogger(buf, config.Log{Level: "warn", Format: "text"}, false)
		require.NoError(t, err)

		logger.Info("hidden")
		assert.Empty(t, buf.String())
		assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		logger, err := newLogger(&bytes.Buffer{}, config.Log{Level: "error", Format: "text"}, true)
		require.NoError(t, err)
		assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := newLogger(&bytes.Buffer{}, config.Log{Level: "loud"}, false)
		assert.Error(t, err)
	})
}
