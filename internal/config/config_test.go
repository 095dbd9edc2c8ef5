package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-dept-admin/internal/config"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.True(t, cfg.IsDev())
	require.Equal(t, "http://localhost:9090", cfg.GetAPIBaseURL())
	require.Equal(t, 10*time.Second, cfg.GetAPITimeout())
	require.Equal(t, config.StorageFile, cfg.GetStorageBackend())
	require.Equal(t, filepath.Join("data", "sessions", "default.json"), cfg.GetSessionFile())
	require.True(t, cfg.GetLegacyMirror())
	require.Equal(t, "info", cfg.GetLogLevel())
	require.Empty(t, cfg.GetLogFile())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"ENV":             "prod",
		"PORT":            ":9000",
		"API_BASE_URL":    "https://api.uni.edu/",
		"API_TIMEOUT":     "3s",
		"STORAGE_BACKEND": "REDIS",
		"PROFILE":         "head-of-dept",
		"REDIS_DB":        "2",
		"LEGACY_MIRROR":   "false",
		"LOG_LEVEL":       "DEBUG",
	})
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "PROD", cfg.GetEnv())
	require.False(t, cfg.IsDev())
	require.Equal(t, "https://api.uni.edu", cfg.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, cfg.GetAPITimeout())
	require.Equal(t, config.StorageRedis, cfg.GetStorageBackend())
	require.Equal(t, "head-of-dept", cfg.GetProfile())
	require.Equal(t, 2, cfg.GetRedisDB())
	require.False(t, cfg.GetLegacyMirror())
	require.Equal(t, "debug", cfg.GetLogLevel())
}

func TestSanitize(t *testing.T) {
	cases := map[string]struct {
		in    config.Settings
		check func(t *testing.T, s config.Settings)
	}{
		"unknown backend falls back to file": {
			in: config.Settings{StorageBackend: "s3"},
			check: func(t *testing.T, s config.Settings) {
				require.Equal(t, config.StorageFile, s.GetStorageBackend())
			},
		},
		"profile cannot escape the storage dir": {
			in: config.Settings{Profile: "../other"},
			check: func(t *testing.T, s config.Settings) {
				require.Equal(t, "default", s.GetProfile())
			},
		},
		"non-positive timeout": {
			in: config.Settings{APITimeout: -time.Second},
			check: func(t *testing.T, s config.Settings) {
				require.Equal(t, 10*time.Second, s.GetAPITimeout())
			},
		},
		"empty port": {
			in: config.Settings{},
			check: func(t *testing.T, s config.Settings) {
				require.Equal(t, ":8080", s.GetPort())
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := tc.in
			s.Sanitize()
			tc.check(t, s)
		})
	}
}

func TestParse_InvalidValue(t *testing.T) {
	_, err := config.Parse(map[string]string{"REDIS_DB": "two"})
	require.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PROFILE=from-dotenv\n"), 0o600))
	t.Setenv("PROFILE", "")
	require.NoError(t, os.Unsetenv("PROFILE"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.GetProfile())
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
