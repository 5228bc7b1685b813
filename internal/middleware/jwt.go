package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"
    "strings" // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/guardhire/guardhire-api/internal/utils"
)

// Context keys written by JWTAuth.
const (
    ClaimsKey = "claims"
    UserIDKey = "user_id"
    RoleKey   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token.
// A request without a bearer token is answered with 401; a token that fails
// verification (bad signature, expired, unknown role) with 403.  On success
// the parsed *utils.Claims are stored under ClaimsKey, and the profile id
// (decimal string) and role under UserIDKey and RoleKey.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // The header must read "Bearer <token>".
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
            if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            claims, err := utils.ParseSessionToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid token"})
            }
            id, _ := claims.UserID()

            c.Set(ClaimsKey, claims)
            c.Set(UserIDKey, strconv.FormatInt(id, 10))
            c.Set(RoleKey, claims.Role)
            return next(c)
        }
    }
}
