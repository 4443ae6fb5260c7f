package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE", "SHUTDOWN_TIMEOUT", "DB_MAX_CONNS", "SMTP_PORT", "NOTIFY_ASYNC", "MAIL_FROM", "CERTIFICATE_ISSUER"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.NotifyAsync)
	assert.Equal(t, cfg.MailFrom, cfg.CertificateIssuer)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE", "memory")
	t.Setenv("DB_MAX_CONNS", "5")
	t.Setenv("NOTIFY_ASYNC", "true")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("SMTP_HOST", "mail.local")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAIL_FROM", "tickets@example.org")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.True(t, cfg.NotifyAsync)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "mail.local:2525", cfg.SMTPAddr())
	assert.Equal(t, "tickets@example.org", cfg.CertificateIssuer)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("NOTIFY_ASYNC", "maybe")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.NotifyAsync)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestValidate_UnknownStorage(t *testing.T) {
	cfg := Load()
	cfg.Storage = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestValidate_MaxConns(t *testing.T) {
	for _, n := range []int32{0, 1} {
		cfg := Load()
		cfg.Storage = StoragePostgres
		cfg.Database.MaxConns = n
		assert.Error(t, cfg.Validate(), "max conns %d", n)
	}

	cfg := Load()
	cfg.Storage = StoragePostgres
	cfg.Database.MaxConns = MinDBConns
	assert.NoError(t, cfg.Validate())

	// The pool is not built for in-memory storage.
	cfg.Storage = StorageMemory
	cfg.Database.MaxConns = 0
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
