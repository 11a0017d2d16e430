package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 5, cfg.Dashboard.RecentLimit)
	assert.Equal(t, 10, cfg.Dashboard.AdminRecent)
	assert.True(t, cfg.Metrics.RecomputeOnWrite)
	assert.True(t, cfg.Engagement.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Reports.SignedURLTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "nexalink", cfg.Redis.KeyPrefix)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ANALYTICS_CACHE_TTL", "not-a-duration")
	v.Set("DASHBOARD_CACHE_TTL", "90s")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 10*time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
