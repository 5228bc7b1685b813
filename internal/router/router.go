// Package router holds the single route table of the API.  Every endpoint is
// declared once with its access rule; registering the same method and path
// twice panics at startup.
package router

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/guardhire/guardhire-api/internal/middleware"
	"github.com/guardhire/guardhire-api/internal/model"
)

// Access states who may call a route.
type Access struct {
	public bool
	roles  []model.Role
}

var (
	// Public routes skip authentication entirely.
	Public = Access{public: true}
	// Authenticated routes accept any valid session token.
	Authenticated = Access{}
)

// Roles restricts a route to the listed roles.
func Roles(roles ...model.Role) Access {
	if len(roles) == 0 {
		panic("router: Roles needs at least one role")
	}
	return Access{roles: roles}
}

func (a Access) String() string {
	switch {
	case a.public:
		return "public"
	case len(a.roles) == 0:
		return "authenticated"
	}
	names := make([]string, len(a.roles))
	for i, r := range a.roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

// Route is one entry of the table.  Middleware runs after the access check.
type Route struct {
	Method     string
	Path       string
	Handler    echo.HandlerFunc
	Access     Access
	Middleware []echo.MiddlewareFunc
}

// Table is the authoritative list of routes.
type Table []Route

// Register mounts every route on e.  It panics when a method and path pair
// appears twice.
func (t Table) Register(e *echo.Echo, jwtSecret string) {
	seen := make(map[string]bool, len(t))
	auth := middleware.JWTAuth(jwtSecret)

	for _, r := range t {
		key := r.Method + " " + r.Path
		if seen[key] {
			panic(fmt.Sprintf("router: duplicate route %s", key))
		}
		seen[key] = true
		if r.Handler == nil {
			panic(fmt.Sprintf("router: nil handler for %s", key))
		}

		var chain []echo.MiddlewareFunc
		if !r.Access.public {
			chain = append(chain, auth)
			if len(r.Access.roles) > 0 {
				chain = append(chain, middleware.RequireRole(r.Access.roles...))
			}
		}
		chain = append(chain, r.Middleware...)
		e.Add(r.Method, r.Path, r.Handler, chain...)
	}
}
