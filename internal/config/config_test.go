package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog-search", cfg.Service.Name)
	assert.Equal(t, 8084, cfg.HTTP.Port)
	assert.Equal(t, 2, cfg.Search.MinQueryLength)
	assert.Equal(t, 3, cfg.Search.SuggestionThreshold)
	assert.Equal(t, 5, cfg.Search.SuggestionLimit)
	assert.Equal(t, time.Minute, cfg.Search.LiveTTL)
	assert.Equal(t, 5*time.Minute, cfg.Search.PageTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Search.AnalyticsEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("CACHE_TTL_PAGE", "90s")
	t.Setenv("MIN_QUERY_LENGTH", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Search.PageTTL)
	assert.Equal(t, 3, cfg.Search.MinQueryLength)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "HTTP_PORT", "70000"},
		{"zero min query length", "MIN_QUERY_LENGTH", "0"},
		{"zero suggestion limit", "SUGGESTION_LIMIT", "0"},
		{"per page too large", "DEFAULT_PER_PAGE", "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresPoolConfig(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.PostgresPoolConfig()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, 5433, pg.Port)
	assert.Contains(t, pg.DSN(), "db.internal:5433")
}
