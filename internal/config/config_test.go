package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "test-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "https://api.twitter.com", cfg.TwitterAPIBaseURL)
	assert.Equal(t, 5, cfg.FetchCount)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, "data", cfg.StateDir)
}

func TestLoad_RequiresDiscordToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownStorageBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_AzureBackendRequiresAccount(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BACKEND", "azure")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.StorageBackend)
}

func TestLoad_FetchCountBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_COUNT", "0")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FETCH_COUNT", "20")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.FetchCount)
}

func TestLoad_AlertEmailRequiresSMTP(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALERT_EMAIL", "ops@example.com")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "bot")
	t.Setenv("SMTP_PASSWORD", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cfg.AlertEmail)
}
