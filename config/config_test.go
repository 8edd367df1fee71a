package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("SURVEY_API_URL", "https://env.example/api")
	t.Setenv("RECAPTCHA_SECRET", "shh")

	cfg, err := ParseFlags([]string{
		"-port", "8080",
		"-token-secret", "s3cret",
		"-token-ttl", "60",
		"-session-ttl", "30m",
		"-admin-user", "admin",
		"-admin-password", "pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Url())
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, time.Minute, cfg.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://env.example/api", cfg.BackendURL)
	assert.Equal(t, "shh", cfg.RecaptchaSecret)
	assert.Equal(t, "qsurvey.sqlite", cfg.DBUrl)
}

func TestParseFlags_FlagBeatsEnv(t *testing.T) {
	t.Setenv("QSURVEY_TOKEN_SECRET", "from-env")
	t.Setenv("SURVEY_API_URL", "https://env.example/api")

	cfg, err := ParseFlags([]string{"-api-url", "http://flag.example"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.TokenSecret)
	assert.Equal(t, "http://flag.example", cfg.BackendURL)
}

func TestParseFlags_Missing(t *testing.T) {
	t.Setenv("QSURVEY_TOKEN_SECRET", "")

	_, err := ParseFlags(nil)
	assert.EqualError(t, err, "missing parameter -token-secret")

	_, err = ParseFlags([]string{"-token-secret", "x", "-admin-user", "admin"})
	assert.EqualError(t, err, "missing parameter -admin-password")
}
