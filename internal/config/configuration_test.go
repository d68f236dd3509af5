package config

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_DSN", "postgres://localhost/adreel")
	t.Setenv("BLOB_BUCKET", "adreel-media")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.WebServerPort)
	assert.Equal(t, 10, cfg.DatabaseRetries)
	assert.Equal(t, "us-east-1", cfg.BlobRegion)
	assert.NotEmpty(t, cfg.TextModel)
	assert.NotEmpty(t, cfg.VideoModel)
	assert.Equal(t, "/tmp/adreel", cfg.StitchWorkDir)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("BLOB_BUCKET", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := LoadConfig(context.Background())
	assert.Error(t, err)
}
