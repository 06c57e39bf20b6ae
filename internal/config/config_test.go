package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.Auth.SessionTTL())
	require.Equal(t, 10, cfg.Auth.BcryptCost)
	require.Equal(t, 5*time.Second, cfg.Auth.StoreTimeout())
	require.Equal(t, "http://localhost:8080/wp-login.php", cfg.Federation.LoginURL())
	require.Equal(t, 1500*time.Millisecond, cfg.Federation.FailureDelay())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "15")
	t.Setenv("FEDERATION_BASE_URL", "https://cms.example.com/")
	t.Setenv("FEDERATION_FAILURE_DELAY_MS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, 15*time.Minute, cfg.Auth.SessionTTL())
	require.Equal(t, "https://cms.example.com", cfg.Federation.ExternalBaseURL)
	require.Zero(t, cfg.Federation.FailureDelay())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:        AppConfig{Env: "development"},
			Auth:       AuthConfig{JWTSecret: "a", BcryptCost: 10},
			Federation: FederationConfig{Secret: "b"},
		}
	}

	t.Run("accepts a complete config", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("rejects low bcrypt cost", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.BcryptCost = 4
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects bcrypt cost above the algorithm limit", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.BcryptCost = 32
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects empty federation secret", func(t *testing.T) {
		cfg := valid()
		cfg.Federation.Secret = " "
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects dev secrets in production", func(t *testing.T) {
		cfg := valid()
		cfg.App.Env = "production"
		cfg.Auth.JWTSecret = devJWTSecret
		require.Error(t, cfg.Validate())
	})
}
