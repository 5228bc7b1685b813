package utils // package utils provides helpers for password hashing and session tokens

import (
    "errors"
    "fmt"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"

    "github.com/guardhire/guardhire-api/internal/model"
)

var (
    ErrInvalidToken = errors.New("invalid token")
    ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of a session token.  The subject carries the
// profile id; the remaining fields let handlers authorize without a lookup.
type Claims struct {
    Username string     `json:"username"`
    Mail     string     `json:"mail"`
    Role     model.Role `json:"role"`
    jwt.RegisteredClaims
}

// UserID returns the profile id stored in the subject.
func (c *Claims) UserID() (int64, error) {
    id, err := strconv.ParseInt(c.Subject, 10, 64)
    if err != nil || id <= 0 {
        return 0, ErrInvalidToken
    }
    return id, nil
}

// SessionToken is a signed token together with its expiry.
type SessionToken struct {
    Token string
    Exp   time.Time
}

// NewSessionToken signs an HS256 token for the profile.  Tokens are
// stateless: there is no server-side revocation, so logout is a client-side
// deletion and a leaked token stays valid until exp.
func NewSessionToken(secret string, p model.Profile, ttl time.Duration) (SessionToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Username: p.Username,
        Mail:     p.Mail,
        Role:     p.Role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatInt(p.ID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
            Issuer:    "guardhire",
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies signature and expiry and returns the claims.
// Tokens carrying a role outside the closed role set are rejected.
func ParseSessionToken(secret, raw string) (*Claims, error) {
    tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return nil, ErrTokenExpired
        }
        return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }
    claims, ok := tok.Claims.(*Claims)
    if !ok || !tok.Valid || !claims.Role.Valid() {
        return nil, ErrInvalidToken
    }
    if _, err := claims.UserID(); err != nil {
        return nil, err
    }
    return claims, nil
}
