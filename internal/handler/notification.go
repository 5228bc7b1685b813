package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/guardhire/guardhire-api/internal/apperror"
	"github.com/guardhire/guardhire-api/internal/middleware"
	"github.com/guardhire/guardhire-api/internal/model"
	"github.com/guardhire/guardhire-api/internal/repository"
)

type NotificationHandler struct {
	Notifications *repository.NotificationRepo
	Profiles      *repository.ProfileRepo
}

func NewNotificationHandler(notes *repository.NotificationRepo, profiles *repository.ProfileRepo) *NotificationHandler {
	return &NotificationHandler{Notifications: notes, Profiles: profiles}
}

type notificationReq struct {
	ProfileID   *int64 `json:"profileId" validate:"omitempty,gt=0"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Type        string `json:"type" validate:"omitempty,max=32"`
}

// List returns the caller's notifications and broadcasts, newest first.
// ?unread=true drops rows already read.
func (h *NotificationHandler) List(c echo.Context) error {
	unread := false
	if v := strings.TrimSpace(c.QueryParam("unread")); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return apperror.Validation("invalid unread")
		}
		unread = b
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	list, err := h.Notifications.ListVisible(ctx, middleware.CurrentUserID(c), unread)
	if err != nil {
		return storeErr(err, "notification")
	}
	return c.JSON(http.StatusOK, list)
}

// Create sends a notification to one profile, or to everyone without
// profileId.
func (h *NotificationHandler) Create(c echo.Context) error {
	var req notificationReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if req.ProfileID != nil {
		if _, err := h.Profiles.GetByID(ctx, *req.ProfileID); err != nil {
			return storeErr(err, "profile")
		}
	}
	n := &model.Notification{
		ProfileID:   req.ProfileID,
		Title:       sanitize(req.Title),
		Description: sanitize(req.Description),
		Type:        strings.ToLower(strings.TrimSpace(req.Type)),
	}
	if err := h.Notifications.Create(ctx, n); err != nil {
		return storeErr(err, "notification")
	}
	return c.JSON(http.StatusCreated, n)
}

// MarkRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, middleware.CurrentUserID(c)); err != nil {
		return storeErr(err, "notification")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
