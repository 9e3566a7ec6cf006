package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []time.Duration
		wantErr bool
	}{
		{name: "default", raw: "1000,2000,4000", want: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{name: "spaces", raw: " 5, 10 ", want: []time.Duration{5 * time.Millisecond, 10 * time.Millisecond}},
		{name: "empty disables retries", raw: "", want: nil},
		{name: "garbage", raw: "1s,2s", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSchedule(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("BULK_RETRY_SCHEDULE_MS", "")
	t.Setenv("BULK_IMAGE_CONCURRENCY", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ImageConcurrency)
	assert.Equal(t, 10, cfg.GroupChunkSize)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.RetrySchedule)
	assert.Equal(t, "supabase", cfg.StorageBackend)
	assert.Equal(t, 90*time.Second, cfg.GeminiCallTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			RedisHost:          "localhost",
			SupabaseURL:        "https://example.supabase.co",
			SupabaseServiceKey: "service",
			GeminiAPIKey:       "key",
			StorageBackend:     "supabase",
			ImageConcurrency:   3,
			GroupChunkSize:     10,
		}
	}

	assert.NoError(t, base().validate())

	cfg := base()
	cfg.GeminiAPIKey = ""
	assert.ErrorContains(t, cfg.validate(), "GEMINI_API_KEY")

	cfg = base()
	cfg.StorageBackend = "r2"
	assert.ErrorContains(t, cfg.validate(), "R2_ACCOUNT_ID")

	cfg = base()
	cfg.StorageBackend = "ftp"
	assert.ErrorContains(t, cfg.validate(), "unknown STORAGE_BACKEND")

	cfg = base()
	cfg.ImageConcurrency = 0
	assert.Error(t, cfg.validate())
}
