package payu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/guardhire/guardhire-api/internal/config"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{100, 10000},
		{19.99, 1999},
		{1.005, 101},
		{2.675, 268},
		{0.1 + 0.2, 30},
		{12.344, 1234},
	}
	for _, tc := range tests {
		got, err := ToMinorUnits(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), 92233720368547758.08, 1e18} {
		_, err := ToMinorUnits(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
	got, err := ToMinorUnits(1e16)
	require.NoError(t, err)
	assert.Equal(t, int64(1e18), got)
	assert.InDelta(t, 12.34, FromMinorUnits(1234), 1e-9)
}

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	ttl   time.Duration
	err   error
}

func (s *countingSource) Token(ctx context.Context) (*oauth2.Token, error) {
	n := s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "tok-" + string(rune('0'+n)), Expiry: time.Now().Add(s.ttl)}, nil
}

func TestTokenCacheCoalescesConcurrentRefresh(t *testing.T) {
	src := &countingSource{delay: 50 * time.Millisecond, ttl: time.Hour}
	tc := NewTokenCache(src, time.Minute)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := tc.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestTokenCacheRefreshesInsideMargin(t *testing.T) {
	src := &countingSource{ttl: 30 * time.Second}
	tc := NewTokenCache(src, time.Minute)

	_, err := tc.Token(context.Background())
	require.NoError(t, err)
	_, err = tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "a token within the safety margin is never reused")

	src.ttl = time.Hour
	tc.Invalidate()
	_, err = tc.Token(context.Background())
	require.NoError(t, err)
	_, err = tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestTokenCachePropagatesErrors(t *testing.T) {
	tc := NewTokenCache(&countingSource{err: errors.New("boom")}, 0)
	_, err := tc.Token(context.Background())
	assert.Error(t, err)
}

type fakeGateway struct {
	t           *testing.T
	tokenCalls  atomic.Int32
	orderCalls  atomic.Int32
	rejectFirst bool
	lastBody    orderBody
	mu          sync.Mutex
}

func (f *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/standard/user/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(f.t, "csecret", r.PostForm.Get("client_secret"))
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":43199,"grant_type":"client_credentials"}`))
	})
	mux.HandleFunc("/api/v2_1/orders", func(w http.ResponseWriter, r *http.Request) {
		n := f.orderCalls.Add(1)
		if f.rejectFirst && n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(f.t, "Bearer abc", r.Header.Get("Authorization"))
		var body orderBody
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "https://merch-prod.snd.payu.com/pay/?orderId=GW123")
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte(`{"status":{"statusCode":"SUCCESS"},"redirectUri":"https://merch-prod.snd.payu.com/pay/?orderId=GW123","orderId":"GW123","extOrderId":"` + body.ExtOrderID + `"}`))
	})
	return mux
}

func newTestClient(t *testing.T, srvURL string) *Client {
	cfg := config.PayUConfig{
		BaseURL: srvURL, ClientID: "cid", ClientSecret: "csecret", PosID: "300746",
		NotifyURL: "https://api.example.com/payment/notify", ContinueURL: "https://app.example.com/done",
		Currency: "PLN", Timeout: 5 * time.Second,
	}
	c := NewClient(cfg, NewTokenCache(NewClientCredentials(cfg), 0))
	c.newID = func() string { return "ext-fixed" }
	return c
}

func TestCreateOrder(t *testing.T) {
	gw := &fakeGateway{t: t}
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	res, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinor: 15050, BuyerEmail: "buyer@example.com", CustomerIP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, "GW123", res.OrderID)
	assert.Equal(t, "ext-fixed", res.ExtOrderID)
	assert.Contains(t, res.RedirectURI, "orderId=GW123")

	gw.mu.Lock()
	body := gw.lastBody
	gw.mu.Unlock()
	assert.Equal(t, "15050", body.TotalAmount)
	assert.Equal(t, "PLN", body.CurrencyCode)
	assert.Equal(t, "300746", body.MerchantPosID)
	assert.Equal(t, "buyer@example.com", body.Buyer.Email)
	assert.Equal(t, "10.1.1.1", body.CustomerIP)
	require.Len(t, body.Products, 1)
	assert.Equal(t, ProductName, body.Products[0].Name)
	assert.Equal(t, "15050", body.Products[0].UnitPrice)

	_, err = c.CreateOrder(context.Background(), OrderRequest{AmountMinor: 100, BuyerEmail: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), gw.tokenCalls.Load(), "token is cached between orders")
}

func TestCreateOrderRefreshesRejectedToken(t *testing.T) {
	gw := &fakeGateway{t: t, rejectFirst: true}
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinor: 100, BuyerEmail: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), gw.tokenCalls.Load())
	assert.Equal(t, int32(2), gw.orderCalls.Load())
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pl/standard/user/oauth/authorize" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"statusCode":"ERROR_VALUE_INVALID"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).CreateOrder(context.Background(), OrderRequest{AmountMinor: 100})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"order":{"orderId":"GW123","status":"COMPLETED"}}`)
	key := "second-key"

	require.NoError(t, VerifySignature(Sign(body, key), body, key))

	// sha256 variant computed the same way
	sha := "signature=" + sha256Hex(append(append([]byte{}, body...), key...)) + ";algorithm=SHA-256"
	require.NoError(t, VerifySignature(sha, body, key))

	assert.ErrorIs(t, VerifySignature(Sign(body, "other"), body, key), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(Sign(body, key), []byte(`{"tampered":true}`), key), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("", body, key), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(Sign(body, key), body, ""), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("signature=abc;algorithm=CRC32", body, key), ErrBadSignature)
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{"order":{"orderId":"GW1","extOrderId":"e1","status":"COMPLETED","totalAmount":"100"}}`))
	require.NoError(t, err)
	assert.Equal(t, Notification{OrderID: "GW1", ExtOrderID: "e1", Status: "COMPLETED"}, n)

	_, err = ParseNotification([]byte(`{"order":{}}`))
	assert.Error(t, err)
	_, err = ParseNotification([]byte(`not json`))
	assert.Error(t, err)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
