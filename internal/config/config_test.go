package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadReportsMissingSecret(t *testing.T) {
    t.Setenv("JWT_SECRET", "")
    _, err := Load()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRequiresGatewaySecretsWhenEnabled(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("PAYU_ENABLED", "true")
    t.Setenv("PAYU_CLIENT_ID", "")
    t.Setenv("PAYU_CLIENT_SECRET", "")
    t.Setenv("PAYU_POS_ID", "")
    t.Setenv("PAYU_SECOND_KEY", "")
    _, err := Load()
    require.Error(t, err)
    for _, key := range []string{"PAYU_CLIENT_ID", "PAYU_CLIENT_SECRET", "PAYU_POS_ID", "PAYU_SECOND_KEY"} {
        assert.Contains(t, err.Error(), key)
    }
}

func TestLoadDefaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("PAYU_ENABLED", "false")
    t.Setenv("DB_DRIVER", "")
    t.Setenv("TOKEN_TTL", "")
    t.Setenv("PAYMENT_DEFAULT_AMOUNT", "")
    t.Setenv("BCRYPT_COST", "")

    cfg, err := Load()
    require.NoError(t, err)
    assert.Equal(t, "sqlite3", cfg.DBDriver)
    assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
    assert.Equal(t, 100.0, cfg.DefaultAmount)
    assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("PAYU_ENABLED", "false")
    t.Setenv("DB_DRIVER", "postgres")
    _, err := Load()
    require.Error(t, err)
}

func TestClampTTL(t *testing.T) {
    assert.Equal(t, MinTokenTTL, clampTTL(time.Hour))
    assert.Equal(t, MaxTokenTTL, clampTTL(72*time.Hour))
    assert.Equal(t, 10*time.Hour, clampTTL(10*time.Hour))
}
