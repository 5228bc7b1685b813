// Package payu adapts the PayU REST API: OAuth token handling, order
// creation and verification of webhook notifications.
package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/guardhire/guardhire-api/internal/config"
)

// ProductName is the single line item sent with every order.
const ProductName = "Usługa ochrony fizycznej"

// ErrGateway wraps every failure talking to the gateway.
var ErrGateway = errors.New("payment gateway error")

// OrderRequest describes an order to create at the gateway.
type OrderRequest struct {
	AmountMinor int64
	Currency    string // empty uses the configured currency
	BuyerEmail  string
	CustomerIP  string
	Description string
}

// OrderResult is what the gateway returns for a created order.
type OrderResult struct {
	OrderID     string
	ExtOrderID  string
	RedirectURI string
}

// Gateway creates payment orders.  Handlers depend on this interface so
// tests can substitute a fake.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// Client talks to the gateway over HTTP.
type Client struct {
	cfg    config.PayUConfig
	tokens *TokenCache
	http   *http.Client
	newID  func() string
}

// NewClient returns a Client using tokens for authorization.  The HTTP
// client never follows redirects: the order endpoint answers 302 with the
// redirect URI in the body.
func NewClient(cfg config.PayUConfig, tokens *TokenCache) *Client {
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		newID: uuid.NewString,
	}
}

type product struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  string `json:"quantity"`
}

type buyer struct {
	Email string `json:"email"`
}

type orderBody struct {
	NotifyURL     string    `json:"notifyUrl,omitempty"`
	ContinueURL   string    `json:"continueUrl,omitempty"`
	CustomerIP    string    `json:"customerIp"`
	MerchantPosID string    `json:"merchantPosId"`
	Description   string    `json:"description"`
	CurrencyCode  string    `json:"currencyCode"`
	TotalAmount   string    `json:"totalAmount"`
	ExtOrderID    string    `json:"extOrderId"`
	Buyer         buyer     `json:"buyer"`
	Products      []product `json:"products"`
}

type orderResponse struct {
	Status struct {
		StatusCode string `json:"statusCode"`
		StatusDesc string `json:"statusDesc"`
	} `json:"status"`
	RedirectURI string `json:"redirectUri"`
	OrderID     string `json:"orderId"`
	ExtOrderID  string `json:"extOrderId"`
}

// CreateOrder submits an order.  A rejected token is refreshed once.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}
	desc := req.Description
	if desc == "" {
		desc = ProductName
	}
	ip := req.CustomerIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	amount := strconv.FormatInt(req.AmountMinor, 10)
	body := orderBody{
		NotifyURL:     c.cfg.NotifyURL,
		ContinueURL:   c.cfg.ContinueURL,
		CustomerIP:    ip,
		MerchantPosID: c.cfg.PosID,
		Description:   desc,
		CurrencyCode:  currency,
		TotalAmount:   amount,
		ExtOrderID:    c.newID(),
		Buyer:         buyer{Email: req.BuyerEmail},
		Products:      []product{{Name: ProductName, UnitPrice: amount, Quantity: "1"}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return OrderResult{}, err
	}

	res, status, err := c.postOrder(ctx, payload)
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		res, _, err = c.postOrder(ctx, payload)
	}
	if err != nil {
		return OrderResult{}, err
	}
	if res.ExtOrderID == "" {
		res.ExtOrderID = body.ExtOrderID
	}
	return res, nil
}

func (c *Client) postOrder(ctx context.Context, payload []byte) (OrderResult, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return OrderResult{}, 0, fmt.Errorf("%w: token: %v", ErrGateway, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v2_1/orders", bytes.NewReader(payload))
	if err != nil {
		return OrderResult{}, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return OrderResult{}, 0, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return OrderResult{}, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrGateway, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusFound:
	default:
		return OrderResult{}, resp.StatusCode, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}
	var out orderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return OrderResult{}, resp.StatusCode, fmt.Errorf("%w: decode: %v", ErrGateway, err)
	}
	if out.Status.StatusCode != "" && out.Status.StatusCode != "SUCCESS" {
		return OrderResult{}, resp.StatusCode, fmt.Errorf("%w: %s", ErrGateway, out.Status.StatusCode)
	}
	if out.OrderID == "" || out.RedirectURI == "" {
		return OrderResult{}, resp.StatusCode, fmt.Errorf("%w: incomplete response", ErrGateway)
	}
	return OrderResult{OrderID: out.OrderID, ExtOrderID: out.ExtOrderID, RedirectURI: out.RedirectURI}, resp.StatusCode, nil
}
