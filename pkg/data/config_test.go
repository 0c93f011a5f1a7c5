package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigs(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		assert.NotZero(t, config.API)
		assert.NotZero(t, config.Arena)
		assert.NotZero(t, config.Log)
		assert.NotZero(t, config.Export)

		assert.NoError(t, config.Validate())
	})

	t.Run("DefaultAPIConfig", func(t *testing.T) {
		config := DefaultAPIConfig()

		assert.Equal(t, "http://localhost:8000/api", config.BaseURL)
		assert.Equal(t, 10*time.Second, config.Timeout)
		assert.NoError(t, config.Validate())
	})

	t.Run("DefaultArenaConfig", func(t *testing.T) {
		config := DefaultArenaConfig()

		assert.Equal(t, 3, config.DefaultRounds)
		assert.Equal(t, 2500*time.Millisecond, config.VersusDelay)
		assert.False(t, config.ShowRoundResults)
		assert.NoError(t, config.Validate())
	})

	t.Run("DefaultLogConfig", func(t *testing.T) {
		config := DefaultLogConfig()

		assert.Equal(t, "info", config.Level)
		assert.Equal(t, "console", config.Format)
		assert.Empty(t, config.File)
		assert.NoError(t, config.Validate())
	})
}

func TestAPIConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  APIConfig
		wantErr string
	}{
		{"Valid", APIConfig{BaseURL: "https://arena.example.com/api", Timeout: time.Second}, ""},
		{"EmptyURL", APIConfig{Timeout: time.Second}, "base_url is required"},
		{"RelativeURL", APIConfig{BaseURL: "/api", Timeout: time.Second}, "absolute http(s) URL"},
		{"WrongScheme", APIConfig{BaseURL: "ftp://host/api", Timeout: time.Second}, "absolute http(s) URL"},
		{"ZeroTimeout", APIConfig{BaseURL: "http://localhost/api"}, "timeout must be positive"},
		{"HugeTimeout", APIConfig{BaseURL: "http://localhost/api", Timeout: time.Hour}, "unusually long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAPIConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestArenaConfigValidation(t *testing.T) {
	t.Run("RoundsBounds", func(t *testing.T) {
		for _, rounds := range []int{0, 21, -1} {
			config := DefaultArenaConfig()
			config.DefaultRounds = rounds
			err := config.Validate()
			assert.ErrorIs(t, err, ErrInvalidArenaConfig, "rounds=%d", rounds)
		}
		for _, rounds := range []int{1, 20} {
			config := DefaultArenaConfig()
			config.DefaultRounds = rounds
			assert.NoError(t, config.Validate(), "rounds=%d", rounds)
		}
	})

	t.Run("NegativeDelay", func(t *testing.T) {
		config := DefaultArenaConfig()
		config.VersusDelay = -time.Second

		err := config.Validate()
		assert.ErrorIs(t, err, ErrInvalidArenaConfig)
		assert.Contains(t, err.Error(), "cannot be negative")
	})
}

func TestLogAndExportConfigValidation(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		config := LogConfig{Level: "trace", Format: "console"}
		assert.ErrorIs(t, config.Validate(), ErrInvalidLogConfig)
	})

	t.Run("InvalidLogFormat", func(t *testing.T) {
		config := LogConfig{Level: "info", Format: "xml"}
		assert.ErrorIs(t, config.Validate(), ErrInvalidLogConfig)
	})

	t.Run("InvalidExportFormat", func(t *testing.T) {
		config := ExportConfig{Format: "yaml", Directory: "."}
		err := config.Validate()
		assert.ErrorIs(t, err, ErrInvalidExportConfig)
		assert.Contains(t, err.Error(), "table, csv, json")
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		config := ExportConfig{Format: "csv", Directory: " "}
		assert.ErrorIs(t, config.Validate(), ErrInvalidExportConfig)
	})
}

func TestYAMLLoading(t *testing.T) {
	t.Run("LoadValidYAML", func(t *testing.T) {
		yamlContent := `
api:
  base_url: http://arena.local:9000/api
  timeout: 3s

arena:
  default_rounds: 5
  versus_delay: 1s
  show_round_results: true

log:
  level: debug
  format: json
  file: flasharena.log

export:
  format: json
  directory: exports
`
		path := filepath.Join(t.TempDir(), "flasharena.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

		config, err := LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "http://arena.local:9000/api", config.API.BaseURL)
		assert.Equal(t, 3*time.Second, config.API.Timeout)
		assert.Equal(t, 5, config.Arena.DefaultRounds)
		assert.Equal(t, time.Second, config.Arena.VersusDelay)
		assert.True(t, config.Arena.ShowRoundResults)
		assert.Equal(t, "debug", config.Log.Level)
		assert.Equal(t, "flasharena.log", config.Log.File)
		assert.Equal(t, "exports", config.Export.Directory)
	})

	t.Run("LoadPartialYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("arena:\n  default_rounds: 7\n"), 0644))

		config, err := LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, 7, config.Arena.DefaultRounds)
		assert.Equal(t, "http://localhost:8000/api", config.API.BaseURL) // Default
		assert.Equal(t, 2500*time.Millisecond, config.Arena.VersusDelay) // Default
		assert.Equal(t, "table", config.Export.Format)                   // Default
	})

	t.Run("LoadNonexistentFile", func(t *testing.T) {
		config, err := LoadFromFile("nonexistent.yaml")
		assert.Nil(t, config)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("LoadInvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: [unclosed\n"), 0644))

		config, err := LoadFromFile(path)
		assert.Nil(t, config)
		assert.ErrorIs(t, err, ErrConfigParseError)
	})

	t.Run("LoadOutOfRangeRounds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rounds.yaml")
		require.NoError(t, os.WriteFile(path, []byte("arena:\n  default_rounds: 40\n"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorIs(t, err, ErrInvalidArenaConfig)
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("FLASHARENA_API_BASE_URL", "http://backend:8000/api/")
		t.Setenv("FLASHARENA_API_TIMEOUT", "2s")
		t.Setenv("FLASHARENA_ARENA_DEFAULT_ROUNDS", "10")
		t.Setenv("FLASHARENA_ARENA_SHOW_ROUND_RESULTS", "true")
		t.Setenv("FLASHARENA_LOG_LEVEL", "WARN")
		t.Setenv("FLASHARENA_EXPORT_FORMAT", "csv")

		config, err := LoadWithEnvironment("")
		require.NoError(t, err)

		assert.Equal(t, "http://backend:8000/api", config.API.BaseURL)
		assert.Equal(t, 2*time.Second, config.API.Timeout)
		assert.Equal(t, 10, config.Arena.DefaultRounds)
		assert.True(t, config.Arena.ShowRoundResults)
		assert.Equal(t, "warn", config.Log.Level)
		assert.Equal(t, "csv", config.Export.Format)
	})

	t.Run("InvalidEnvironmentValues", func(t *testing.T) {
		t.Setenv("FLASHARENA_API_TIMEOUT", "soon")
		t.Setenv("FLASHARENA_ARENA_DEFAULT_ROUNDS", "many")

		config, err := LoadWithEnvironment("")
		require.NoError(t, err)

		assert.Equal(t, 10*time.Second, config.API.Timeout)
		assert.Equal(t, 3, config.Arena.DefaultRounds)
	})

	t.Run("InvalidOverrideFailsValidation", func(t *testing.T) {
		t.Setenv("FLASHARENA_LOG_FORMAT", "xml")

		_, err := LoadWithEnvironment("")
		assert.ErrorIs(t, err, ErrInvalidLogConfig)
	})
}

func TestDotEnvLoading(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FLASHARENA_ARENA_VERSUS_DELAY=750ms\n"), 0644))

	// Unset after the test so the value read from the file does not leak
	t.Setenv("FLASHARENA_ARENA_VERSUS_DELAY", "")
	require.NoError(t, os.Unsetenv("FLASHARENA_ARENA_VERSUS_DELAY"))

	config, err := LoadWithEnvironment("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, config.Arena.VersusDelay)

	t.Run("ProcessEnvironmentWins", func(t *testing.T) {
		t.Setenv("FLASHARENA_ARENA_VERSUS_DELAY", "100ms")

		config, err := LoadWithEnvironment("", envFile)
		require.NoError(t, err)
		assert.Equal(t, 100*time.Millisecond, config.Arena.VersusDelay)
	})

	t.Run("MissingEnvFileIgnored", func(t *testing.T) {
		_, err := LoadWithEnvironment("", filepath.Join(dir, "absent.env"))
		assert.NoError(t, err)
	})
}

func TestConfigurationIntegration(t *testing.T) {
	config := DefaultConfig()
	config.API.BaseURL = "http://saved:8000/api"
	config.Arena.DefaultRounds = 4
	config.Export.Format = "json"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, config.SaveToFile(path))

	t.Setenv("FLASHARENA_ARENA_DEFAULT_ROUNDS", "6")

	loaded, err := LoadWithEnvironment(path)
	require.NoError(t, err)

	assert.Equal(t, "http://saved:8000/api", loaded.API.BaseURL)
	assert.Equal(t, "json", loaded.Export.Format)
	assert.Equal(t, 6, loaded.Arena.DefaultRounds)
	assert.Equal(t, 2500*time.Millisecond, loaded.Arena.VersusDelay)
	assert.NoError(t, loaded.Validate())
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	paths := SearchPaths("flasharena.yaml")
	assert.Equal(t, []string{
		"flasharena.yaml",
		filepath.Join(home, ".config", "flasharena", "flasharena.yaml"),
		filepath.Join(home, ".flasharena", "flasharena.yaml"),
		filepath.Join("/etc", "flasharena", "flasharena.yaml"),
	}, paths)

	assert.Equal(t, "not-there.yaml", ResolvePath("not-there.yaml"))
	assert.Equal(t, "dir/flasharena.yaml", ResolvePath("dir/flasharena.yaml"))
	assert.Equal(t, []string{"dir/flasharena.yaml"}, SearchPaths("dir/flasharena.yaml"))

	userConfig := filepath.Join(home, ".config", "flasharena", "resolve-test.yaml")
	require.NoError(t, CreateDefaultConfig(userConfig, false))
	assert.Equal(t, userConfig, ResolvePath("resolve-test.yaml"))
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flasharena.yaml")

	require.NoError(t, CreateDefaultConfig(path, false))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *loaded)

	err = CreateDefaultConfig(path, false)
	assert.ErrorContains(t, err, "already exists")
	assert.NoError(t, CreateDefaultConfig(path, true))
}
