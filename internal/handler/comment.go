package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guardhire/guardhire-api/internal/model"
	"github.com/guardhire/guardhire-api/internal/repository"
)

// CommentHandler serves public order feedback.
type CommentHandler struct {
	Comments *repository.CommentRepo
	Orders   *repository.OrderRepo
}

func NewCommentHandler(comments *repository.CommentRepo, orders *repository.OrderRepo) *CommentHandler {
	return &CommentHandler{Comments: comments, Orders: orders}
}

type commentReq struct {
	OrderID int64  `json:"orderId" validate:"required,gt=0"`
	Author  string `json:"author" validate:"required,max=255"`
	Content string `json:"content" validate:"required,max=5000"`
	Rating  *int   `json:"rating" validate:"omitempty,min=0,max=10"`
}

func (h *CommentHandler) Create(c echo.Context) error {
	var req commentReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Orders.Get(ctx, req.OrderID); err != nil {
		return storeErr(err, "order")
	}
	cm := &model.Comment{
		OrderID: req.OrderID,
		Author:  sanitize(req.Author),
		Content: sanitize(req.Content),
		Rating:  req.Rating,
	}
	if err := h.Comments.Create(ctx, cm); err != nil {
		return storeErr(err, "comment")
	}
	return c.JSON(http.StatusCreated, cm)
}

// ListByOrder returns an order's comments, newest first.
func (h *CommentHandler) ListByOrder(c echo.Context) error {
	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Orders.Get(ctx, id); err != nil {
		return storeErr(err, "order")
	}
	list, err := h.Comments.ListByOrder(ctx, id)
	if err != nil {
		return storeErr(err, "comment")
	}
	return c.JSON(http.StatusOK, list)
}
