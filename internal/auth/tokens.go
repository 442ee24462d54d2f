// Package auth owns the per-property Cloudbeds OAuth tokens. Routes
// never see these; only the API client asks for them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/metrics"
)

var (
	// ErrCredentialsMissing means the property has no complete OAuth
	// credential set configured.
	ErrCredentialsMissing = errors.New("missing oauth credentials")

	// ErrTokenRefreshFailed means the refresh-token exchange was
	// rejected or unreachable.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// TokenCache keeps one access token per property and refreshes it on
// expiry. Concurrent callers for the same expired property share a
// single outstanding refresh; refresh tokens are rate-limited
// upstream, so duplicate exchanges burn quota for nothing.
type TokenCache struct {
	authURL string
	creds   map[string]core.Credentials
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	tokens map[string]tokenEntry
}

type Options struct {
	AuthURL     string
	Credentials map[string]core.Credentials
	HTTPClient  *http.Client
	// Refresh calls per second across all properties; zero disables
	// client-side limiting.
	RefreshRateLimit float64
	RefreshBurst     int
	Logger           *zap.Logger
	Metrics          *metrics.Collector
	Now              func() time.Time
}

func NewTokenCache(opts Options) *TokenCache {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if opts.RefreshRateLimit > 0 {
		burst := opts.RefreshBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RefreshRateLimit), burst)
	}
	return &TokenCache{
		authURL: opts.AuthURL,
		creds:   opts.Credentials,
		client:  client,
		limiter: limiter,
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
		tokens:  make(map[string]tokenEntry),
	}
}

// GetToken returns a valid access token for the property, refreshing
// it first if the cached one is absent or expired.
func (tc *TokenCache) GetToken(ctx context.Context, propertyID string) (string, error) {
	if token, ok := tc.cached(propertyID); ok {
		return token, nil
	}

	// All concurrent callers for this property ride one refresh.
	v, err, _ := tc.group.Do(propertyID, func() (interface{}, error) {
		// A previous flight may have stored a token while this caller
		// was waiting to enter.
		if token, ok := tc.cached(propertyID); ok {
			return token, nil
		}
		return tc.refresh(ctx, propertyID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (tc *TokenCache) cached(propertyID string) (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	e, ok := tc.tokens[propertyID]
	if !ok || !tc.now().Before(e.expiresAt) {
		return "", false
	}
	return e.token, true
}

type refreshResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func (tc *TokenCache) refresh(ctx context.Context, propertyID string) (string, error) {
	creds, ok := tc.creds[propertyID]
	if !ok || !creds.Complete() {
		return "", fmt.Errorf("%w for property %s", ErrCredentialsMissing, propertyID)
	}

	if tc.limiter != nil {
		if err := tc.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
		}
	}

	// Cloudbeds expects exactly this form encoding
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.metrics.RecordTokenRefresh(propertyID, err)
		return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		tc.metrics.RecordTokenRefresh(propertyID, err)
		return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		tc.metrics.RecordTokenRefresh(propertyID, err)
		return "", fmt.Errorf("%w: invalid response: %v", ErrTokenRefreshFailed, err)
	}

	if resp.StatusCode != http.StatusOK || parsed.AccessToken == "" {
		msg := parsed.ErrorDescription
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		refreshErr := fmt.Errorf("%w: %s", ErrTokenRefreshFailed, msg)
		tc.metrics.RecordTokenRefresh(propertyID, refreshErr)
		tc.logger.Warn("oauth refresh rejected",
			zap.String("property", propertyID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		// failed attempts are never cached
		return "", refreshErr
	}

	tc.mu.Lock()
	tc.tokens[propertyID] = tokenEntry{
		token:     parsed.AccessToken,
		expiresAt: tc.now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}
	tc.mu.Unlock()

	tc.metrics.RecordTokenRefresh(propertyID, nil)
	tc.logger.Debug("oauth token refreshed",
		zap.String("property", propertyID),
		zap.Int("expires_in", parsed.ExpiresIn),
	)
	return parsed.AccessToken, nil
}
