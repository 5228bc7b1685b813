package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/guardhire/guardhire-api/internal/model"
)

func TestHashAndVerifyPassword(t *testing.T) {
    hash, err := HashPassword("tajne123", bcrypt.MinCost)
    require.NoError(t, err)
    assert.NotEqual(t, "tajne123", hash)
    assert.True(t, VerifyPassword(hash, "tajne123"))
    assert.False(t, VerifyPassword(hash, "tajne124"))
}

func TestSessionTokenRoundTrip(t *testing.T) {
    p := model.Profile{ID: 42, Username: "jan", Mail: "jan@example.com", Role: model.RoleGuard}
    tok, err := NewSessionToken("secret", p, 8*time.Hour)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(8*time.Hour), tok.Exp, time.Minute)

    claims, err := ParseSessionToken("secret", tok.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    assert.Equal(t, int64(42), id)
    assert.Equal(t, "jan", claims.Username)
    assert.Equal(t, "jan@example.com", claims.Mail)
    assert.Equal(t, model.RoleGuard, claims.Role)
}

func TestParseSessionTokenRejects(t *testing.T) {
    p := model.Profile{ID: 1, Username: "a", Role: model.RoleUser}

    good, err := NewSessionToken("secret", p, time.Hour)
    require.NoError(t, err)
    _, err = ParseSessionToken("other-secret", good.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    expired, err := NewSessionToken("secret", p, -time.Minute)
    require.NoError(t, err)
    _, err = ParseSessionToken("secret", expired.Token)
    assert.ErrorIs(t, err, ErrTokenExpired)

    forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
        Role:             model.Role("superuser"),
        RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
    })
    raw, err := forged.SignedString([]byte("secret"))
    require.NoError(t, err)
    _, err = ParseSessionToken("secret", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseSessionToken("secret", "not-a-jwt")
    assert.ErrorIs(t, err, ErrInvalidToken)
}
