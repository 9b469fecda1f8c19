package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "userstats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseConfigMissingFile(t *testing.T) {
	cfg, err := parseConfig(filepath.Join(t.TempDir(), "userstats.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestParseConfig(t *testing.T) {
	path := writeConfig(t, `
in_dir: /srv/in
debug: true
watch: true
postgres:
  dsn: postgres://metrics@localhost/userstats
influxdb:
  url: http://localhost:8086
  user: gkle
  password: secret
  database: userstats
  hostname: importer1
`)
	cfg, err := parseConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/in", cfg.InDir)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, "status", cfg.StatusDir)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Watch)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "postgres://metrics@localhost/userstats", cfg.Postgres.DSN)
	require.NotNil(t, cfg.InfluxDB)
	assert.Equal(t, "importer1", cfg.InfluxDB.Hostname)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty dir", "out_dir: \"\"\n"},
		{"empty dsn", "postgres:\n  dsn: \"\"\n"},
		{"influx without url", "influxdb:\n  user: a\n  password: b\n  database: c\n"},
		{"influx without credentials", "influxdb:\n  url: http://localhost:8086\n"},
		{"not yaml", "in_dir: [\n"},
		{"watch without postgres", "watch: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
