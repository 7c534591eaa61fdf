package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Port: "8080"},
		Resolver: ResolverConfig{
			SimilarityThreshold: 0.8,
			TopK:                3,
			RetryAttempts:       3,
			BackoffBase:         500 * time.Millisecond,
			BackoffMax:          10 * time.Second,
			CacheCapacity:       4096,
		},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 1536},
		Storage:   StorageConfig{DataPath: "/tmp/dishplay"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("invalid environment", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "testing"
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logger.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		for _, v := range []float64{-0.1, 1.1} {
			cfg := validConfig()
			cfg.Resolver.SimilarityThreshold = v
			assert.Error(t, cfg.Validate(), "threshold %f should be rejected", v)
		}
	})

	t.Run("threshold boundaries accepted", func(t *testing.T) {
		for _, v := range []float64{0, 1} {
			cfg := validConfig()
			cfg.Resolver.SimilarityThreshold = v
			assert.NoError(t, cfg.Validate(), "threshold %f should be accepted", v)
		}
	})

	t.Run("top-k must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Resolver.TopK = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("cache capacity must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Resolver.CacheCapacity = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("embedding dimensions must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Embedding.Dimensions = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty data path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.DataPath = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestGetConfigValue(t *testing.T) {
	t.Run("flag takes precedence", func(t *testing.T) {
		t.Setenv("TEST_KEY", "env-value")
		assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_KEY", "default"))
	})

	t.Run("env over default", func(t *testing.T) {
		t.Setenv("TEST_KEY", "env-value")
		assert.Equal(t, "env-value", getConfigValue("", "TEST_KEY", "default"))
	})

	t.Run("default when nothing set", func(t *testing.T) {
		assert.Equal(t, "default", getConfigValue("", "TEST_UNSET_KEY", "default"))
	})
}

func TestGetFloatConfigValue(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.75")
	assert.Equal(t, 0.75, getFloatConfigValue("", "TEST_FLOAT", 0.8))

	t.Setenv("TEST_FLOAT", "not-a-number")
	assert.Equal(t, 0.8, getFloatConfigValue("", "TEST_FLOAT", 0.8))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nDISHPLAY_TEST_A=hello\nDISHPLAY_TEST_B=\"quoted\"\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DISHPLAY_TEST_A", "")
	os.Unsetenv("DISHPLAY_TEST_A")
	t.Setenv("DISHPLAY_TEST_B", "")
	os.Unsetenv("DISHPLAY_TEST_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("DISHPLAY_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("DISHPLAY_TEST_B"))
}

func TestExpandPath(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default/path")
		require.NoError(t, err)
		assert.Equal(t, "/default/path", got)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		got, err := expandPath("~/dishplay", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "dishplay"), got)
	})

	t.Run("absolute path kept", func(t *testing.T) {
		got, err := expandPath("/var/lib/dishplay", "")
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/dishplay", got)
	})
}
