package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 5, cfg.Backup.Keep)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  path: /var/lib/offerdb/offers.db
  busy_timeout: 250ms
backup:
  keep: 2
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/offerdb/offers.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.BusyTimeout)
	assert.Equal(t, 2, cfg.Backup.Keep)
	assert.Equal(t, "", cfg.Backup.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("database:\n  busy_timout: 1s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy_timout")
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty path", "database: {path: \"\"}", "database.path"},
		{"zero timeout", "database: {busy_timeout: 0s}", "busy_timeout"},
		{"negative keep", "backup: {keep: -1}", "backup.keep"},
		{"bad level", "log: {level: loud}", "log.level"},
		{"bad format", "log: {format: xml}", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offerdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: data/offers.db
backup:
  dir: /srv/backups
seed:
  catalog: seed.yaml
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "offers.db"), cfg.Database.Path)
	assert.Equal(t, "/srv/backups", cfg.Backup.Dir)
	assert.Equal(t, filepath.Join(dir, "seed.yaml"), cfg.Seed.Catalog)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
