package payu

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/guardhire/guardhire-api/internal/config"
)

// DefaultTokenMargin is subtracted from the gateway's expires_in so a token
// is never presented in its last seconds of validity.
const DefaultTokenMargin = 60 * time.Second

// TokenSource fetches a fresh OAuth token.  *clientcredentials.Config
// satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenCache holds the gateway access token between calls.  When the token
// is missing or about to expire, concurrent callers share a single upstream
// fetch.
type TokenCache struct {
	source TokenSource
	margin time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	token  string
	expiry time.Time

	group singleflight.Group
}

// NewTokenCache wraps source.  margin <= 0 uses DefaultTokenMargin.
func NewTokenCache(source TokenSource, margin time.Duration) *TokenCache {
	if margin <= 0 {
		margin = DefaultTokenMargin
	}
	return &TokenCache{source: source, margin: margin, now: time.Now}
}

// NewClientCredentials builds the OAuth client-credentials source for the
// gateway's authorize endpoint.  The gateway expects the credentials in the
// form body.
func NewClientCredentials(cfg config.PayUConfig) TokenSource {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/pl/standard/user/oauth/authorize",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &timeoutSource{cc: cc, client: &http.Client{Timeout: cfg.Timeout}}
}

type timeoutSource struct {
	cc     *clientcredentials.Config
	client *http.Client
}

func (s *timeoutSource) Token(ctx context.Context) (*oauth2.Token, error) {
	return s.cc.Token(context.WithValue(ctx, oauth2.HTTPClient, s.client))
}

// Token returns a valid access token, fetching one when needed.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := tc.cached(); ok {
		return tok, nil
	}
	v, err, _ := tc.group.Do("token", func() (any, error) {
		// another caller may have refreshed while we waited
		if tok, ok := tc.cached(); ok {
			return tok, nil
		}
		t, err := tc.source.Token(ctx)
		if err != nil {
			return "", err
		}
		expiry := t.Expiry
		if expiry.IsZero() {
			expiry = tc.now().Add(5 * time.Minute)
		}
		tc.mu.Lock()
		tc.token = t.AccessToken
		tc.expiry = expiry.Add(-tc.margin)
		tc.mu.Unlock()
		return t.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, e.g. after the gateway rejected it.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.token = ""
	tc.expiry = time.Time{}
	tc.mu.Unlock()
}

func (tc *TokenCache) cached() (string, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.token == "" || !tc.now().Before(tc.expiry) {
		return "", false
	}
	return tc.token, true
}
