package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "furk_session", cfg.SessionCookieName)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 5, cfg.ProgressMaxRetry)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 10000, cfg.LoaderMaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.LoaderIdleTTL)
	assert.Equal(t, time.Minute, cfg.ProgressReconcile)
}

func TestOrigins(t *testing.T) {
	AppConfig.AllowedOrigins = " https://furk.app, ,http://localhost:3000 "
	t.Cleanup(func() { AppConfig = Config{} })

	assert.Equal(t, []string{"https://furk.app", "http://localhost:3000"}, Origins())
}

func TestIsProduction(t *testing.T) {
	AppConfig.Env = "production"
	t.Cleanup(func() { AppConfig = Config{} })
	assert.True(t, IsProduction())
}
