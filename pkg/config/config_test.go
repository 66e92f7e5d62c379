package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/downtimeradar/pkg/ingest"
	"github.com/carverauto/downtimeradar/pkg/snapshot"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateYAML(t *testing.T) {
	path := writeFile(t, "downtime.yaml", `
listen_addr: ":9000"
shutdown_timeout: 5s
store:
  backend: sqlite
  path: /var/lib/downtimeradar/snapshots.db
ingest:
  header_row: 0
  first_column: A
  strict: false
  column_aliases:
    failure_type:
      exact: ["Panne"]
analysis:
  machine_family: CRIMP
objectives:
  mtbf_hours: 10
`)

	var cfg ServerConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, Duration(5*time.Second), cfg.ShutdownTimeout)
	assert.Equal(t, snapshot.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "CRIMP", cfg.Analysis.MachineFamily)
	assert.Equal(t, 12, cfg.Analysis.DefaultWeeks)
	assert.Equal(t, 10.0, cfg.Objectives.MTBFHours)
	assert.Equal(t, 0.08, cfg.Objectives.MTTRHours)

	table := cfg.Ingest.TableOptions()
	assert.Equal(t, 0, table.HeaderRow)
	assert.Equal(t, "A", table.FirstColumn)
	assert.Equal(t, "X", table.LastColumn)

	opts := cfg.Ingest.NormalizerOptions()
	assert.False(t, opts.Strict)
	assert.Equal(t, []string{"Panne"}, opts.Aliases[ingest.FieldFailureType].Exact)
	assert.Equal(t, ingest.DefaultExcludedFailureTypes, opts.ExcludedFailureTypes)
}

func TestLoadAndValidateJSONDefaults(t *testing.T) {
	path := writeFile(t, "downtime.json", `{"store": {"backend": "memory"}}`)

	var cfg ServerConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, Duration(defaultShutdownTimeout), cfg.ShutdownTimeout)
	assert.Equal(t, 9, *cfg.Ingest.HeaderRow)
	assert.True(t, *cfg.Ingest.Strict)
	assert.Equal(t, DefaultTrackedComponents, cfg.Analysis.TrackedComponents)
	assert.Equal(t, 98.0, cfg.Objectives.AvailabilityPct)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{name: "bad log level", mutate: func(c *ServerConfig) { c.LogLevel = "loud" }},
		{name: "unknown backend", mutate: func(c *ServerConfig) { c.Store.Backend = "redis" }},
		{name: "inverted columns", mutate: func(c *ServerConfig) { c.Ingest.FirstColumn, c.Ingest.LastColumn = "X", "B" }},
		{name: "availability over 100", mutate: func(c *ServerConfig) { c.Objectives.AvailabilityPct = 120 }},
		{name: "negative rate", mutate: func(c *ServerConfig) { c.RateLimit.RequestsPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), errInvalidConfig)
		})
	}

	require.NoError(t, DefaultServerConfig().Validate())
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, Duration(90*time.Second), d)

	require.NoError(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, Duration(1000), d)

	require.ErrorIs(t, d.UnmarshalJSON([]byte(`"soon"`)), errInvalidDuration)
	require.ErrorIs(t, d.UnmarshalJSON([]byte(`true`)), errInvalidDuration)
}

func TestLoadFileErrors(t *testing.T) {
	var cfg ServerConfig

	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.json"), &cfg))
	require.Error(t, LoadFile(writeFile(t, "bad.json", "{"), &cfg))
}

func TestLoadServerConfigWithoutPath(t *testing.T) {
	cfg, err := LoadServerConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, snapshot.BackendFile, cfg.Store.Backend)
	assert.Equal(t, "weekly_data", cfg.Store.Path)
}
