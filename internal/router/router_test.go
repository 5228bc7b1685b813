package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardhire/guardhire-api/internal/model"
	"github.com/guardhire/guardhire-api/internal/utils"
)

const secret = "router-secret"

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func token(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := utils.NewSessionToken(secret, model.Profile{ID: 1, Username: "u", Role: role}, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestRegisterPanicsOnDuplicateRoute(t *testing.T) {
	table := Table{
		{Method: http.MethodDelete, Path: "/orders/:id", Handler: ok, Access: Roles(model.RoleAdmin)},
		{Method: http.MethodDelete, Path: "/orders/:id", Handler: ok, Access: Public},
	}
	assert.PanicsWithValue(t, "router: duplicate route DELETE /orders/:id", func() {
		table.Register(echo.New(), secret)
	})
}

func TestRegisterPanicsOnNilHandler(t *testing.T) {
	table := Table{{Method: http.MethodGet, Path: "/x", Access: Public}}
	assert.Panics(t, func() { table.Register(echo.New(), secret) })
}

func TestRolesRequiresAtLeastOne(t *testing.T) {
	assert.Panics(t, func() { Roles() })
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "admin,headuser", Roles(model.RoleAdmin, model.RoleHeadUser).String())
}

func TestAccessIsEnforced(t *testing.T) {
	e := echo.New()
	Table{
		{Method: http.MethodGet, Path: "/open", Handler: ok, Access: Public},
		{Method: http.MethodGet, Path: "/any", Handler: ok, Access: Authenticated},
		{Method: http.MethodGet, Path: "/admin", Handler: ok, Access: Roles(model.RoleAdmin)},
	}.Register(e, secret)

	cases := []struct {
		path string
		role model.Role
		code int
	}{
		{"/open", "", http.StatusOK},
		{"/any", "", http.StatusUnauthorized},
		{"/any", model.RoleGuard, http.StatusOK},
		{"/admin", model.RoleUser, http.StatusForbidden},
		{"/admin", model.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.role != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, tc.role))
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.code, rec.Code, "%s as %q", tc.path, tc.role)
	}
}

func TestRoutesHaveNoDuplicates(t *testing.T) {
	table := Routes(Handlers{}, Options{})
	seen := map[string]bool{}
	for _, r := range table {
		key := r.Method + " " + r.Path
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	assert.NotPanics(t, func() { table.Register(echo.New(), secret) })
}
