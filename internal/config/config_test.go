package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IMPORT_CHUNK_SIZE", "")
	t.Setenv("VALIDATION_BATCH_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.ImportChunkSize)
	assert.Equal(t, 100, cfg.ValidationBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.ValidationCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IMPORT_CHUNK_SIZE", "250")
	t.Setenv("IMPORT_ASYNC", "true")
	t.Setenv("VALIDATION_YIELD", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.ImportChunkSize)
	assert.True(t, cfg.ImportAsync)
	assert.Equal(t, time.Duration(0), cfg.ValidationYield)
}

func TestLoadRejectsNonPositiveChunkSize(t *testing.T) {
	t.Setenv("IMPORT_CHUNK_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUsername: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBDatabase: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true&loc=Local&charset=utf8mb4", cfg.GetDSN())
}
