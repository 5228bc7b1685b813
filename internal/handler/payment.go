package handler

import (
    "errors"
    "io"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/guardhire/guardhire-api/internal/apperror"
    "github.com/guardhire/guardhire-api/internal/config"
    "github.com/guardhire/guardhire-api/internal/model"
    "github.com/guardhire/guardhire-api/internal/payu"
    "github.com/guardhire/guardhire-api/internal/repository"
    "github.com/guardhire/guardhire-api/internal/service"
)

// maxNotifyBody caps the webhook payload read into memory.
const maxNotifyBody = 1 << 20

// PaymentHandler serves manual payments, gateway checkout and the gateway
// webhook.
type PaymentHandler struct {
    Cfg      config.Config
    Payments *repository.PaymentRepo
    Orders   *repository.OrderRepo
    Gateway  payu.Gateway // nil when the gateway is disabled
    Service  *service.PaymentService
    Log      zerolog.Logger
}

func NewPaymentHandler(cfg config.Config, payments *repository.PaymentRepo, orders *repository.OrderRepo,
    gw payu.Gateway, svc *service.PaymentService, log zerolog.Logger) *PaymentHandler {
    return &PaymentHandler{Cfg: cfg, Payments: payments, Orders: orders, Gateway: gw, Service: svc, Log: log}
}

type manualPaymentReq struct {
    OrderID int64    `json:"orderId" validate:"required,gt=0"`
    Amount  *float64 `json:"amount" validate:"omitempty,gt=0"`
}

type payReq struct {
    PaymentID *int64   `json:"paymentId" validate:"omitempty,gt=0"`
    OrderID   *int64   `json:"orderId" validate:"omitempty,gt=0"`
    Email     string   `json:"email" validate:"required,email"`
    Amount    *float64 `json:"amount" validate:"omitempty,gt=0"`
}

func (h *PaymentHandler) amountMinor(amount *float64) (int64, error) {
    v := h.Cfg.DefaultAmount
    if amount != nil {
        v = *amount
    }
    minor, err := payu.ToMinorUnits(v)
    if err != nil || minor <= 0 {
        return 0, apperror.Validation("invalid amount")
    }
    return minor, nil
}

// ManualCreate records a pending payment without contacting the gateway.
func (h *PaymentHandler) ManualCreate(c echo.Context) error {
    var req manualPaymentReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    minor, err := h.amountMinor(req.Amount)
    if err != nil {
        return err
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    if _, err := h.Orders.Get(ctx, req.OrderID); err != nil {
        return storeErr(err, "order")
    }
    p := &model.Payment{OrderID: &req.OrderID, AmountMinor: minor, Currency: h.Cfg.PayU.Currency}
    if err := h.Payments.Insert(ctx, p); err != nil {
        return storeErr(err, "payment")
    }
    return c.JSON(http.StatusCreated, echo.Map{"paymentId": p.ID})
}

// Pay creates a gateway order and returns the checkout redirect.  With a
// paymentId the gateway order is attached to that payment; otherwise a new
// pending payment is stored.
func (h *PaymentHandler) Pay(c echo.Context) error {
    var req payReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    if h.Gateway == nil {
        return apperror.Upstream("payment error", errors.New("gateway disabled"))
    }

    ctx := c.Request().Context()

    orderID := req.OrderID
    var (
        existing *model.Payment
        minor    int64
        err      error
    )
    if req.PaymentID != nil {
        p, err := h.Payments.Get(ctx, *req.PaymentID)
        if err != nil {
            return storeErr(err, "payment")
        }
        if !p.Status.Open() {
            return apperror.Validation("payment already settled")
        }
        if p.GatewayOrderID != nil {
            return apperror.Conflict("payment already has a checkout")
        }
        existing = &p
        orderID = p.OrderID
        minor = p.AmountMinor
    } else if orderID != nil {
        if _, err := h.Orders.Get(ctx, *orderID); err != nil {
            return storeErr(err, "order")
        }
    }
    if minor == 0 {
        if minor, err = h.amountMinor(req.Amount); err != nil {
            return err
        }
    }

    res, err := h.Gateway.CreateOrder(ctx, payu.OrderRequest{
        AmountMinor: minor,
        Currency:    h.Cfg.PayU.Currency,
        BuyerEmail:  req.Email,
        CustomerIP:  c.RealIP(),
    })
    if err != nil {
        return apperror.Upstream("payment error", err)
    }

    var paymentID int64
    if existing != nil {
        if err := h.Payments.AttachGateway(ctx, existing.ID, res.OrderID, res.ExtOrderID, req.Email); err != nil {
            return storeErr(err, "payment")
        }
        paymentID = existing.ID
    } else {
        p := &model.Payment{
            OrderID:        orderID,
            AmountMinor:    minor,
            Currency:       h.Cfg.PayU.Currency,
            Status:         model.PaymentPending,
            GatewayOrderID: &res.OrderID,
            ExtOrderID:     &res.ExtOrderID,
            BuyerEmail:     &req.Email,
        }
        if err := h.Payments.Insert(ctx, p); err != nil {
            return storeErr(err, "payment")
        }
        paymentID = p.ID
    }
    return c.JSON(http.StatusOK, echo.Map{
        "redirectUri": res.RedirectURI,
        "paymentId":   paymentID,
        "orderId":     orderID,
    })
}

// Notify receives gateway status notifications.  Unsigned or wrongly
// signed requests are rejected with 401 before anything is parsed.  A
// verified notification is always acknowledged with 200; processing
// problems are only logged, as the gateway would otherwise retry.
func (h *PaymentHandler) Notify(c echo.Context) error {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxNotifyBody))
    if err != nil {
        return apperror.Validation("invalid body")
    }
    if err := payu.VerifySignature(c.Request().Header.Get(payu.SignatureHeader), body, h.Cfg.PayU.SecondKey); err != nil {
        h.Log.Warn().Str("remote_ip", c.RealIP()).Msg("notification rejected: bad signature")
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
    }

    n, err := payu.ParseNotification(body)
    if err != nil {
        h.Log.Error().Err(err).Msg("notification: malformed payload")
        return c.JSON(http.StatusOK, echo.Map{"success": true})
    }

    ctx, cancel := dbCtx(c)
    defer cancel()

    status := model.GatewayPaymentStatus(n.Status)
    _, err = h.Service.SetStatusByGatewayOrder(ctx, n.OrderID, status)
    switch {
    case err == nil:
        h.Log.Info().Str("gateway_order_id", n.OrderID).Str("status", string(status)).Msg("notification applied")
    case errors.Is(err, repository.ErrNotFound):
        h.Log.Warn().Str("gateway_order_id", n.OrderID).Msg("notification for unknown payment")
    case errors.Is(err, service.ErrTerminal):
        h.Log.Info().Str("gateway_order_id", n.OrderID).Str("status", string(status)).Msg("notification ignored: payment settled")
    default:
        h.Log.Error().Err(err).Str("gateway_order_id", n.OrderID).Msg("notification: update failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Confirm marks a payment completed by hand.
func (h *PaymentHandler) Confirm(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    p, err := h.Service.SetStatus(ctx, id, model.PaymentCompleted)
    if errors.Is(err, service.ErrTerminal) {
        return apperror.Conflict("payment already " + string(p.Status))
    }
    if err != nil {
        return storeErr(err, "payment")
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// List returns every payment.
func (h *PaymentHandler) List(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Payments.List(ctx)
    if err != nil {
        return storeErr(err, "payment")
    }
    return c.JSON(http.StatusOK, list)
}

// Confirmed returns completed payments.
func (h *PaymentHandler) Confirmed(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    list, err := h.Payments.ListByStatus(ctx, model.PaymentCompleted)
    if err != nil {
        return storeErr(err, "payment")
    }
    return c.JSON(http.StatusOK, list)
}

// Wipe deletes all payments.
func (h *PaymentHandler) Wipe(c echo.Context) error {
    ctx, cancel := dbCtx(c)
    defer cancel()

    n, err := h.Payments.Wipe(ctx)
    if err != nil {
        return storeErr(err, "payment")
    }
    h.Log.Warn().Int64("deleted", n).Msg("payments wiped")
    return c.JSON(http.StatusOK, echo.Map{"success": true, "deleted": n})
}
