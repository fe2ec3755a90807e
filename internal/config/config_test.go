package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.HTTP.Addr())
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, []string{"http://127.0.0.1:5000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Graph.URI)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "suspicious-transactions", cfg.Kafka.Topic)
	assert.Equal(t, "models.db", cfg.Artifacts.Path)
	assert.InDelta(t, 0.2, cfg.Training.TestFraction, 1e-9)
	assert.Equal(t, 100, cfg.Training.Trees)
	assert.Equal(t, 1000, cfg.Generator.Transactions)
	assert.InDelta(t, 0.1, cfg.Generator.SuspiciousRatio, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("TRAIN_TREES", "25")
	t.Setenv("GEN_SUSPICIOUS_RATIO", "0.3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Training.Trees)
	assert.InDelta(t, 0.3, cfg.Generator.SuspiciousRatio, 1e-9)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":          "70000",
		"TRAIN_TEST_FRACTION":  "1.5",
		"GEN_SUSPICIOUS_RATIO": "-0.1",
		"GEN_USERS":            "1",
		"SERVER_READ_TIMEOUT":  "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ARTIFACTS_PATH=/tmp/txflag-models.db\n"), 0o600))
	t.Setenv("ARTIFACTS_PATH", "")
	require.NoError(t, os.Unsetenv("ARTIFACTS_PATH"))

	require.NoError(t, LoadDotenv(path))
	t.Cleanup(func() { os.Unsetenv("ARTIFACTS_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/txflag-models.db", cfg.Artifacts.Path)

	assert.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadDotenv(""))
}
