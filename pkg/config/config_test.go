package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRouteClassFromEnvDefaults(t *testing.T) {
	cfg := routeClassFromEnv("NOPE", 15*time.Minute, 5)

	assert.Equal(t, 15*time.Minute, cfg.Window)
	assert.Equal(t, 5, cfg.MaxRequests)
}

func TestRouteClassFromEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_WINDOW_MS", "60000")
	t.Setenv("AUTH_MAX_REQUESTS", "10")

	cfg := routeClassFromEnv("AUTH", 15*time.Minute, 5)

	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, 10, cfg.MaxRequests)
}

func TestGetEnvStringEmptyValueFallsBack(t *testing.T) {
	t.Setenv("SOME_KEY", "")

	assert.Equal(t, "fallback", getEnvString("SOME_KEY", "fallback"))
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")

	assert.Equal(t, 42, getEnvInt("SOME_INT", 42))
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("SOME_FLOAT", "0.25")

	assert.Equal(t, 0.25, getEnvFloat("SOME_FLOAT", 0.10))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("SOME_BOOL", "TRUE")

	assert.True(t, getEnvBool("SOME_BOOL", false))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("SOME_DURATION", "250ms")

	assert.Equal(t, 250*time.Millisecond, getEnvDuration("SOME_DURATION", time.Second))
}
