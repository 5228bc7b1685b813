package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/guardhire/guardhire-api/internal/repository"
)

// CacheInvalidator drops cached GET responses after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type NewsHandler struct {
	News  *repository.NewsRepo
	Cache CacheInvalidator
	Log   zerolog.Logger
}

func NewNewsHandler(news *repository.NewsRepo, cache CacheInvalidator, log zerolog.Logger) *NewsHandler {
	return &NewsHandler{News: news, Cache: cache, Log: log}
}

type newsReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=10000"`
}

func (h *NewsHandler) invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("news cache invalidation failed")
	}
}

func (h *NewsHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	list, err := h.News.List(ctx)
	if err != nil {
		return storeErr(err, "news")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NewsHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	n, err := h.News.Get(ctx, id)
	if err != nil {
		return storeErr(err, "news")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NewsHandler) Create(c echo.Context) error {
	var req newsReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	n, err := h.News.Create(ctx, sanitize(req.Title), sanitize(req.Description))
	if err != nil {
		return storeErr(err, "news")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, n)
}

func (h *NewsHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req newsReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.News.Update(ctx, id, sanitize(req.Title), sanitize(req.Description)); err != nil {
		return storeErr(err, "news")
	}
	h.invalidate(ctx)
	n, err := h.News.Get(ctx, id)
	if err != nil {
		return storeErr(err, "news")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NewsHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.News.Delete(ctx, id); err != nil {
		return storeErr(err, "news")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
