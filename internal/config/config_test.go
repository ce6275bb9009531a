package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"saas_backend/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE", "memory")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "http://a.io,http://b.io")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "s3cret", cfg.Tokens.Secret)
	require.Equal(t, "HS256", cfg.Tokens.Algorithm)
	require.Equal(t, 30*time.Minute, cfg.Tokens.AccessTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.Tokens.EmailConfirmTTL)
	require.True(t, cfg.Tokens.RequireCompany)
	require.Equal(t, 24*time.Hour, cfg.Cleanup.Interval)
	require.Equal(t, 5*time.Minute, cfg.Mail.ResendCooldown)
	require.Equal(t, "log", cfg.Mail.Transport)
	require.Equal(t, []string{"http://a.io", "http://b.io"}, cfg.HTTPServer.CORSOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: "dev"
storage: "postgres"
tokens:
  secret: "file-secret"
  refresh_token_ttl: 72h
postgres:
  user: "app"
  dbname: "saas"
mail:
  transport: "rabbitmq"
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "file-secret", cfg.Tokens.Secret)
	require.Equal(t, 72*time.Hour, cfg.Tokens.RefreshTokenTTL)
	require.Equal(t, "app", cfg.Postgres.User)
	require.Equal(t, int32(10), cfg.Postgres.MaxConns)
	require.Equal(t, "email_confirmations", cfg.RabbitMQ.QueueName)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	t.Run("unknown storage", func(t *testing.T) {
		t.Setenv("STORAGE", "sqlite")
		_, err := config.Load("")
		require.ErrorContains(t, err, "unknown storage")
	})

	t.Run("postgres without credentials", func(t *testing.T) {
		t.Setenv("STORAGE", "postgres")
		t.Setenv("POSTGRES_USER", "")
		_, err := config.Load("")
		require.ErrorContains(t, err, "postgres")
	})

	t.Run("brevo without key", func(t *testing.T) {
		t.Setenv("STORAGE", "memory")
		t.Setenv("MAIL_TRANSPORT", "brevo")
		_, err := config.Load("")
		require.ErrorContains(t, err, "brevo")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorContains(t, err, "does not exist")
	})
}

func TestMustLoadMailSender(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("MAIL_DELIVERY", "log")

	cfg := config.MustLoadMailSender()
	require.Equal(t, "email_confirmations", cfg.RabbitMQ.QueueName)

	t.Setenv("MAIL_DELIVERY", "pigeon")
	require.Panics(t, func() { config.MustLoadMailSender() })
}
