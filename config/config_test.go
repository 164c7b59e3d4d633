package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLL_ATTEMPTS", "")
	t.Setenv("POLL_INTERVAL", "")

	cfg := Load()

	assert.Equal(t, 12, cfg.PollAttempts)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.MetadataTimeout)
	assert.Equal(t, 1800*time.Second, cfg.SignedURLTTL)
	assert.Equal(t, RenderLocal, cfg.RenderMode)
	assert.Equal(t, "https://core.prod.beatstars.net", cfg.MarketplaceAPIURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_ATTEMPTS", "3")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SIGNED_URL_TTL", "60")
	t.Setenv("RENDER_MODE", RenderRemote)
	t.Setenv("HOST", "https://api.example.com/")
	t.Setenv("GOOGLE_REDIRECT_URL", "")
	t.Setenv("REDIS_HOST", "cache")

	cfg := Load()

	assert.Equal(t, 3, cfg.PollAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, RenderRemote, cfg.RenderMode)
	assert.Equal(t, "https://api.example.com", cfg.Host)
	assert.True(t, cfg.RedisEnabled())
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("BOSKO_TEST_INT", "not-a-number")
	t.Setenv("BOSKO_TEST_BOOL", "maybe")
	t.Setenv("BOSKO_TEST_DUR", "soon")

	assert.Equal(t, 7, getEnvInt("BOSKO_TEST_INT", 7))
	assert.True(t, getEnvBool("BOSKO_TEST_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("BOSKO_TEST_DUR", time.Second))
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "bosko"}
	assert.Equal(t, "u:p@tcp(h:3306)/bosko?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestEffectiveLockTTLCoversStage(t *testing.T) {
	cfg := &Config{
		PollInterval:    5 * time.Second,
		PollAttempts:    12,
		MetadataTimeout: 30 * time.Second,
		TransferTimeout: 5 * time.Minute,
		RenderTimeout:   10 * time.Minute,
		LockTTL:         15 * time.Minute,
	}
	assert.Equal(t, 15*time.Minute+30*time.Second, cfg.StageBudget())
	assert.Equal(t, 16*time.Minute+30*time.Second, cfg.EffectiveLockTTL())

	cfg.LockTTL = time.Hour
	assert.Equal(t, time.Hour, cfg.EffectiveLockTTL())

	cfg.PollAttempts = 60
	assert.Equal(t, 37*time.Minute+30*time.Second, cfg.StageBudget())
}
