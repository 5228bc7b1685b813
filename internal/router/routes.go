package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guardhire/guardhire-api/internal/handler"
	"github.com/guardhire/guardhire-api/internal/model"
)

// Handlers bundles the resource handlers the table points at.
type Handlers struct {
	DB            *sql.DB
	Profiles      *handler.ProfileHandler
	Orders        *handler.OrderHandler
	Payments      *handler.PaymentHandler
	News          *handler.NewsHandler
	Notifications *handler.NotificationHandler
	Comments      *handler.CommentHandler
	Reports       *handler.ReportHandler
}

// Options carries the optional per-route middleware.
type Options struct {
	JWTSecret string
	UploadDir string
	RateLimit echo.MiddlewareFunc // login and registration
	NewsCache echo.MiddlewareFunc // public news reads
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}

const (
	admin    = model.RoleAdmin
	headuser = model.RoleHeadUser
	guard    = model.RoleGuard
	user     = model.RoleUser
)

// Routes builds the route table.
func Routes(h Handlers, o Options) Table {
	limited := optional(o.RateLimit)
	cached := optional(o.NewsCache)

	return Table{
		{Method: http.MethodGet, Path: "/healthz", Handler: handler.Health(h.DB), Access: Public},

		// profiles
		{Method: http.MethodPost, Path: "/profiles", Handler: h.Profiles.Register, Access: Public, Middleware: limited},
		{Method: http.MethodPost, Path: "/profiles/login", Handler: h.Profiles.Login, Access: Public, Middleware: limited},
		{Method: http.MethodPost, Path: "/profiles/check-email", Handler: h.Profiles.CheckEmail, Access: Public, Middleware: limited},
		{Method: http.MethodGet, Path: "/profiles/me", Handler: h.Profiles.Me, Access: Authenticated},
		{Method: http.MethodPut, Path: "/profiles/me", Handler: h.Profiles.UpdateMe, Access: Authenticated},
		{Method: http.MethodGet, Path: "/profiles", Handler: h.Profiles.List, Access: Roles(admin, headuser)},
		{Method: http.MethodGet, Path: "/profiles/:id", Handler: h.Profiles.Get, Access: Authenticated},
		{Method: http.MethodPatch, Path: "/profiles/:id/role", Handler: h.Profiles.ChangeRole, Access: Roles(admin)},
		{Method: http.MethodPost, Path: "/profiles/guards", Handler: h.Profiles.RegisterGuard, Access: Roles(admin)},

		// orders
		{Method: http.MethodGet, Path: "/orders", Handler: h.Orders.List, Access: Roles(admin, headuser)},
		{Method: http.MethodGet, Path: "/orders/my", Handler: h.Orders.ListMine, Access: Authenticated},
		{Method: http.MethodGet, Path: "/orders/guards", Handler: h.Orders.ListGuards, Access: Authenticated},
		{Method: http.MethodPost, Path: "/orders", Handler: h.Orders.Create, Access: Roles(admin, headuser, user)},
		{Method: http.MethodGet, Path: "/orders/:id", Handler: h.Orders.Get, Access: Authenticated},
		{Method: http.MethodPut, Path: "/orders/:id", Handler: h.Orders.Update, Access: Roles(admin, headuser)},
		{Method: http.MethodPatch, Path: "/orders/:id/status", Handler: h.Orders.UpdateStatus, Access: Authenticated},
		{Method: http.MethodPost, Path: "/orders/:id/accept", Handler: h.Orders.Accept, Access: Roles(guard)},
		{Method: http.MethodPatch, Path: "/orders/:id/assign", Handler: h.Orders.Assign, Access: Roles(admin, headuser)},
		{Method: http.MethodDelete, Path: "/orders/:id", Handler: h.Orders.Delete, Access: Roles(admin)},

		// payments
		{Method: http.MethodPost, Path: "/payment/manual-create", Handler: h.Payments.ManualCreate, Access: Roles(admin)},
		{Method: http.MethodPost, Path: "/payment/pay", Handler: h.Payments.Pay, Access: Authenticated},
		{Method: http.MethodPost, Path: "/payment/notify", Handler: h.Payments.Notify, Access: Public},
		{Method: http.MethodPatch, Path: "/payment/:id/confirm", Handler: h.Payments.Confirm, Access: Roles(admin)},
		{Method: http.MethodGet, Path: "/payment/list", Handler: h.Payments.List, Access: Roles(admin)},
		{Method: http.MethodGet, Path: "/payment/confirmed", Handler: h.Payments.Confirmed, Access: Roles(admin, headuser)},
		{Method: http.MethodDelete, Path: "/payment/wipe", Handler: h.Payments.Wipe, Access: Roles(admin)},

		// news
		{Method: http.MethodGet, Path: "/news", Handler: h.News.List, Access: Public, Middleware: cached},
		{Method: http.MethodGet, Path: "/news/:id", Handler: h.News.Get, Access: Public, Middleware: cached},
		{Method: http.MethodPost, Path: "/news", Handler: h.News.Create, Access: Roles(admin)},
		{Method: http.MethodPut, Path: "/news/:id", Handler: h.News.Update, Access: Roles(admin)},
		{Method: http.MethodDelete, Path: "/news/:id", Handler: h.News.Delete, Access: Roles(admin)},

		// notifications
		{Method: http.MethodGet, Path: "/notifications", Handler: h.Notifications.List, Access: Authenticated},
		{Method: http.MethodPost, Path: "/notifications", Handler: h.Notifications.Create, Access: Roles(admin, headuser)},
		{Method: http.MethodPatch, Path: "/notifications/:id/read", Handler: h.Notifications.MarkRead, Access: Authenticated},

		// comments
		{Method: http.MethodPost, Path: "/comments", Handler: h.Comments.Create, Access: Public},
		{Method: http.MethodGet, Path: "/comments/:orderId", Handler: h.Comments.ListByOrder, Access: Public},

		// reports
		{Method: http.MethodPost, Path: "/reports", Handler: h.Reports.Create, Access: Roles(guard, admin)},
		{Method: http.MethodGet, Path: "/reports", Handler: h.Reports.List, Access: Authenticated},
		{Method: http.MethodGet, Path: "/reports/all", Handler: h.Reports.All, Access: Roles(admin)},
	}
}

// Register mounts the route table and the upload directory on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	Routes(h, o).Register(e, o.JWTSecret)
	if o.UploadDir != "" {
		e.Static("/uploads", o.UploadDir)
	}
}
