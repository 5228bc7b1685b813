package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/guardhire/guardhire-api/internal/apperror"
    "github.com/guardhire/guardhire-api/internal/middleware"
    "github.com/guardhire/guardhire-api/internal/model"
    "github.com/guardhire/guardhire-api/internal/queue"
    "github.com/guardhire/guardhire-api/internal/repository"
)

// OrderHandler serves orders and the guard search.
type OrderHandler struct {
    Orders    *repository.OrderRepo
    Profiles  *repository.ProfileRepo
    Publisher queue.Publisher
}

func NewOrderHandler(orders *repository.OrderRepo, profiles *repository.ProfileRepo, pub queue.Publisher) *OrderHandler {
    if orders == nil || profiles == nil || pub == nil {
        panic("nil dependency passed to NewOrderHandler")
    }
    return &OrderHandler{Orders: orders, Profiles: profiles, Publisher: pub}
}

type createOrderReq struct {
    Name          string   `json:"name" validate:"required,max=255"`
    Description   string   `json:"description" validate:"max=5000"`
    Status        string   `json:"status" validate:"required"`
    Date          string   `json:"date" validate:"required,max=64"`
    Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
    Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
    PaymentStatus string   `json:"paymentStatus"`
    CreatedBy     *int64   `json:"createdBy"`
    AssignedGuard *int64   `json:"assignedGuard"`
}

type updateOrderReq struct {
    Name   string `json:"name" validate:"required,max=255"`
    Status string `json:"status" validate:"required"`
    Date   string `json:"date" validate:"required,max=64"`
}

type statusReq struct {
    Status string `json:"status" validate:"required"`
}

type assignReq struct {
    GuardID int64 `json:"guardId" validate:"required,gt=0"`
}

func (h *OrderHandler) requireGuard(ctx context.Context, id int64) error {
    ok, err := h.Profiles.IsGuard(ctx, id)
    if err != nil {
        return storeErr(err, "profile")
    }
    if !ok {
        return apperror.Validation("assignedGuard must reference a guard profile")
    }
    return nil
}

func (h *OrderHandler) announce(ctx context.Context, o model.Order, from, to model.OrderStatus, actor int64) {
    // failures are logged by the publisher
    _ = h.Publisher.PublishOrderStatusChanged(ctx, queue.OrderStatusChangedEvent{
        OrderID:       o.ID,
        OrderName:     o.Name,
        From:          from,
        To:            to,
        CreatedBy:     o.CreatedBy,
        AssignedGuard: o.AssignedGuard,
        ChangedBy:     actor,
        ChangedAt:     time.Now().UTC().Format(time.RFC3339),
    })
}

// List returns every order, newest first.
func (h *OrderHandler) List(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Orders.List(ctx)
    if err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, list)
}

// ListMine returns orders the caller created or is assigned to.
func (h *OrderHandler) ListMine(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Orders.ListForProfile(ctx, middleware.CurrentUserID(c))
    if err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, list)
}

// Create stores a new order and echoes the stored row.
func (h *OrderHandler) Create(c echo.Context) error {
    var req createOrderReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    status, err := model.ParseOrderStatus(req.Status)
    if err != nil {
        return apperror.Validation(err.Error())
    }
    paid, err := model.ParsePaymentMarker(req.PaymentStatus)
    if err != nil {
        return apperror.Validation(err.Error())
    }
    createdBy := req.CreatedBy
    if createdBy == nil {
        id := middleware.CurrentUserID(c)
        createdBy = &id
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if req.AssignedGuard != nil {
        if err := h.requireGuard(ctx, *req.AssignedGuard); err != nil {
            return err
        }
    }
    o := &model.Order{
        Name:          sanitize(req.Name),
        Description:   sanitize(req.Description),
        Status:        status,
        Date:          strings.TrimSpace(req.Date),
        Latitude:      req.Latitude,
        Longitude:     req.Longitude,
        PaymentStatus: paid,
        CreatedBy:     createdBy,
        AssignedGuard: req.AssignedGuard,
    }
    if err := h.Orders.Create(ctx, o); err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusCreated, o)
}

// Get returns one order.
func (h *OrderHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    o, err := h.Orders.Get(ctx, id)
    if err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, o)
}

// Update overwrites name, status and date.  The status must be known but
// the workflow graph is not enforced for administrative edits.
func (h *OrderHandler) Update(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req updateOrderReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    status, err := model.ParseOrderStatus(req.Status)
    if err != nil {
        return apperror.Validation(err.Error())
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Orders.Update(ctx, id, sanitize(req.Name), status, strings.TrimSpace(req.Date)); err != nil {
        return storeErr(err, "order")
    }
    o, err := h.Orders.Get(ctx, id)
    if err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, o)
}

// UpdateStatus moves an order along the workflow.  The legacy paid label
// sets the payment marker instead of the status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req statusReq
    if err := bindValid(c, &req); err != nil {
        return err
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if strings.EqualFold(strings.TrimSpace(req.Status), model.LegacyPaidMarker) {
        if err := h.Orders.SetPaymentStatus(ctx, id, model.PaymentPaid); err != nil {
            return storeErr(err, "order")
        }
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    }

    to, err := model.ParseOrderStatus(req.Status)
    if err != nil {
        return apperror.Validation(err.Error())
    }
    o, err := h.Orders.Get(ctx, id)
    if err != nil {
        return storeErr(err, "order")
    }
    if o.Status == to {
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    }
    if !o.Status.CanTransition(to) {
        return apperror.Validation("cannot change status from " + string(o.Status) + " to " + string(to))
    }
    if err := h.Orders.UpdateStatus(ctx, id, o.Status, to); err != nil {
        return storeErr(err, "order")
    }
    h.announce(ctx, o, o.Status, to, middleware.CurrentUserID(c))
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Accept lets a guard take an unassigned new order; it starts immediately.
func (h *OrderHandler) Accept(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    guardID := middleware.CurrentUserID(c)

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Orders.Accept(ctx, id, guardID); err != nil {
        if errors.Is(err, repository.ErrVersionConflict) {
            return apperror.Conflict("order is no longer available")
        }
        return storeErr(err, "order")
    }
    o, err := h.Orders.Get(ctx, id)
    if err != nil {
        return storeErr(err, "order")
    }
    h.announce(ctx, o, model.OrderNew, model.OrderInProgress, guardID)
    return c.JSON(http.StatusOK, o)
}

// Assign sets the guard of an order.
func (h *OrderHandler) Assign(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req assignReq
    if err := bindValid(c, &req); err != nil {
        return err
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.requireGuard(ctx, req.GuardID); err != nil {
        return err
    }
    if err := h.Orders.Assign(ctx, id, req.GuardID); err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Delete removes an order.
func (h *OrderHandler) Delete(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    if err := h.Orders.Delete(ctx, id); err != nil {
        return storeErr(err, "order")
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// query returns the first non-empty value among the given query keys.
func query(c echo.Context, keys ...string) string {
    for _, k := range keys {
        if v := strings.TrimSpace(c.QueryParam(k)); v != "" {
            return v
        }
    }
    return ""
}

// ListGuards searches guard profiles.  Filter keys are the Polish names the
// mobile client sends; English aliases are accepted too.
func (h *OrderHandler) ListGuards(c echo.Context) error {
    f := repository.GuardFilter{
        Name:        query(c, "imie", "name"),
        City:        query(c, "lokalizacja", "city"),
        Gender:      query(c, "plec", "gender"),
        Specialties: query(c, "specjalizacje", "specialties"),
    }
    if v := query(c, "lata_doswiadczenia", "experience"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil || n < 0 {
            return apperror.Validation("invalid lata_doswiadczenia")
        }
        f.MinExperience = &n
    }
    if v := query(c, "pozwolenie_na_bron", "firearm"); v != "" {
        b, err := parseBool(v)
        if err != nil {
            return apperror.Validation("invalid pozwolenie_na_bron")
        }
        f.FirearmLicense = &b
    }
    if v := query(c, "ocena", "rating"); v != "" {
        r, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
        if err != nil {
            return apperror.Validation("invalid ocena")
        }
        f.MinRating = &r
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Profiles.SearchGuards(ctx, f)
    if err != nil {
        return storeErr(err, "guard")
    }
    return c.JSON(http.StatusOK, list)
}

func parseBool(s string) (bool, error) {
    switch strings.ToLower(s) {
    case "tak", "yes":
        return true, nil
    case "nie", "no":
        return false, nil
    }
    return strconv.ParseBool(s)
}
