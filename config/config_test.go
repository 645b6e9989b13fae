package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_DB", "search")
	t.Setenv("POSTGRES_USER", "search")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("CRAWLER_USER_AGENT", "test-agent/1.0")
	t.Setenv("QUEUE_BATCH_SIZE", "32")
	t.Setenv("REQUEST_TIMEOUT_S", "10")
	t.Setenv("BATCH_INTERVAL_S", "300")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 32, cfg.Crawler.QueueBatchSize)
	assert.Equal(t, 8, cfg.Crawler.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Crawler.RequestTimeout)
	assert.Equal(t, 300*time.Second, cfg.Batch.Interval)
	assert.Equal(t, 1, cfg.Batch.TotalNodes)
	assert.Equal(t, 0, cfg.Batch.NodeIndex)
	assert.Equal(t, "auto", cfg.Batch.Role)
	assert.Equal(t, 120000, cfg.Spellcheck.MetaMaxWords)
}

func TestLoadMissingDatabase(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTGRES_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingUserAgent(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CRAWLER_USER_AGENT", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidRole(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BATCH_ROLE", "leader")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadExplicitRole(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BATCH_ROLE", "Coordinator")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "coordinator", cfg.Batch.Role)
}

func TestConnString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "5432", Name: "n", User: "u", Password: "p"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.ConnString())
}
