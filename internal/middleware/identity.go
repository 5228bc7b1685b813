package middleware

// identity.go reads the caller identity that JWTAuth stored in the echo
// context.  Handlers use CurrentClaims; the cache and rate limiter only need
// a string key and fall back to "anon".

import (
    "github.com/labstack/echo/v4"

    "github.com/guardhire/guardhire-api/internal/utils"
)

// CurrentClaims returns the verified claims of the caller, if any.
func CurrentClaims(c echo.Context) (*utils.Claims, bool) {
    cl, ok := c.Get(ClaimsKey).(*utils.Claims)
    return cl, ok && cl != nil
}

// CurrentUserID returns the caller's profile id, or 0 when unauthenticated.
func CurrentUserID(c echo.Context) int64 {
    cl, ok := CurrentClaims(c)
    if !ok {
        return 0
    }
    id, err := cl.UserID()
    if err != nil {
        return 0
    }
    return id
}

func currentUserKey(c echo.Context) string {
    if s, ok := c.Get(UserIDKey).(string); ok && s != "" {
        return s
    }
    return "anon"
}
