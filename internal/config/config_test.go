package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
data_dir = "/from/file"
`)

	flagDir := "/from/flag"
	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"TINKUJI_DATA_DIR": "/from/env",
		},
		Flags: FlagOverrides{
			DataDir: &flagDir,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "/from/flag", cfg.Storage.DataDir)
	require.Equal(t, filepath.Join("/from/flag", "tinkuji.db"), cfg.DatabasePath())
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[files]
max_document_size_mb = 8
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"TINKUJI_DATA_DIR":             "/data",
			"TINKUJI_MAX_DOCUMENT_SIZE_MB": "12",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Files.MaxDocumentSizeMB)
	require.Equal(t, int64(12*1024*1024), cfg.MaxDocumentBytes())
}

func TestLoadConfigDotenvBetweenFileAndEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
data_dir = "/data"

[logging]
level = "warn"
format = "json"
`)
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TINKUJI_LOG_LEVEL=debug\nTINKUJI_LOG_FORMAT=text\n"), 0o600))

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		EnvFile:    envPath,
		Env: map[string]string{
			"TINKUJI_LOG_FORMAT": "json",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestMissingFilesAreNotAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Load(LoadOptions{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		EnvFile:    filepath.Join(dir, "missing.env"),
		Env: map[string]string{
			"TINKUJI_HOME": dir,
		},
	})
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Storage.DataDir)
	require.Equal(t, "tinkuji.db", cfg.Storage.DatabaseName)
	require.Equal(t, 5, cfg.Files.MaxDocumentSizeMB)
	require.Equal(t, 24*time.Hour, cfg.Files.OrphanGracePeriod)
}

func TestLoadConfigFromTOMLParsesAllSupportedFields(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
data_dir = "/var/lib/tinkuji"
database_name = "bookings.db"

[files]
max_document_size_mb = 10
orphan_grace_period = "6h"

[auth]
argon2_memory_kib = 16384
argon2_iterations = 2
argon2_parallelism = 1

[logging]
level = "debug"
format = "json"
file = "/tmp/tinkuji.log"
max_size_mb = 42
max_files = 9

[metrics]
enabled = true
`)

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath})
	require.NoError(t, err)
	require.Equal(t, "/var/lib/tinkuji", cfg.Storage.DataDir)
	require.Equal(t, "bookings.db", cfg.Storage.DatabaseName)
	require.Equal(t, 10, cfg.Files.MaxDocumentSizeMB)
	require.Equal(t, 6*time.Hour, cfg.Files.OrphanGracePeriod)
	require.Equal(t, uint32(16384), cfg.Auth.Argon2MemoryKiB)
	require.Equal(t, uint32(2), cfg.Auth.Argon2Iterations)
	require.Equal(t, uint8(1), cfg.Auth.Argon2Parallelism)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "/tmp/tinkuji.log", cfg.Logging.File)
	require.Equal(t, 42, cfg.Logging.MaxSizeMB)
	require.Equal(t, 9, cfg.Logging.MaxFiles)
	require.True(t, cfg.Metrics.Enabled)

	params := cfg.Argon2Params()
	require.Equal(t, uint32(16384), params.Memory)
	require.NoError(t, params.Validate())
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		toml string
	}{
		{name: "zero-document-size", toml: "[files]\nmax_document_size_mb = 0"},
		{name: "huge-document-size", toml: "[files]\nmax_document_size_mb = 500"},
		{name: "negative-grace", toml: "[files]\norphan_grace_period = \"-1h\""},
		{name: "bad-duration", toml: "[files]\norphan_grace_period = \"soon\""},
		{name: "database-name-with-dir", toml: "[storage]\ndatabase_name = \"../x.db\""},
		{name: "weak-argon2", toml: "[auth]\nargon2_memory_kib = 1024"},
		{name: "bad-parallelism", toml: "[auth]\nargon2_parallelism = 300"},
		{name: "bad-level", toml: "[logging]\nlevel = \"loud\""},
		{name: "bad-format", toml: "[logging]\nformat = \"xml\""},
		{name: "not-toml", toml: "[storage\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgPath := writeConfigFile(t, "[storage]\ndata_dir = \"/data\"\n"+tt.toml+"\n")
			if tt.name == "database-name-with-dir" || tt.name == "not-toml" {
				cfgPath = writeConfigFile(t, tt.toml+"\n")
			}
			_, err := Load(LoadOptions{
				ConfigPath: cfgPath,
				Env:        map[string]string{"TINKUJI_HOME": t.TempDir()},
			})
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigRejectsBadEnvValues(t *testing.T) {
	t.Parallel()

	for _, key := range []string{
		"TINKUJI_MAX_DOCUMENT_SIZE_MB",
		"TINKUJI_ORPHAN_GRACE_PERIOD",
		"TINKUJI_ARGON2_MEMORY_KIB",
		"TINKUJI_METRICS_ENABLED",
	} {
		_, err := Load(LoadOptions{
			ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
			Env: map[string]string{
				"TINKUJI_HOME": t.TempDir(),
				key:            "not-a-value",
			},
		})
		require.ErrorIs(t, err, ErrInvalidConfig, key)
	}
}

func TestMetricsFlagOverridesFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
data_dir = "/data"

[metrics]
enabled = true
`)
	disabled := false
	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Flags:      FlagOverrides{MetricsEnabled: &disabled},
	})
	require.NoError(t, err)
	require.False(t, cfg.Metrics.Enabled)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
