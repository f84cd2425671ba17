package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

const (
	defaultSessionTimeout = 30 * time.Second
	sessionLimiterBurst   = 2
	maxBodySizeBytes      = 5 * 1024 * 1024

	loginPath = "/api/v1/session"

	userAgent = "MarketNavigator/2.0"
)

// HTTPConfig configures an authenticated HTTP session against one platform.
type HTTPConfig struct {
	BaseURL  string
	Email    string
	Password string
	RPS      float64
	Timeout  time.Duration
}

// HTTPSession is a cookie-based authenticated session. It implements
// Session and is not safe for concurrent use.
type HTTPSession struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	alive bool
}

var _ Session = (*HTTPSession)(nil)

// NewHTTPSession creates an unauthenticated session. Login must be called
// before Get; the gateway and the fetch workers both do so.
func NewHTTPSession(cfg HTTPConfig) (*HTTPSession, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSessionTimeout
	}

	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &HTTPSession{
		cfg: cfg,
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), sessionLimiterBurst),
	}, nil
}

// HTTPFactory creates independent HTTPSession instances from one config,
// giving each detail-fetch worker its own cookie jar and limiter.
type HTTPFactory struct {
	cfg HTTPConfig
}

// NewHTTPFactory creates a session factory for the given platform config.
func NewHTTPFactory(cfg HTTPConfig) *HTTPFactory {
	return &HTTPFactory{cfg: cfg}
}

// New creates a fresh unauthenticated session.
func (f *HTTPFactory) New() (Session, error) {
	return NewHTTPSession(f.cfg)
}

// Alive reports whether the last login is still believed valid. It is a
// cheap local check; an expired session is detected lazily by Get.
func (s *HTTPSession) Alive(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alive
}

// Login authenticates against the platform's session endpoint. The session
// cookie lands in the jar; subsequent Gets carry it automatically.
func (s *HTTPSession) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"email":    s.cfg.Email,
		"password": s.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute login request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", apperrors.ErrLoginRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %d", apperrors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	s.mu.Lock()
	s.alive = true
	s.mu.Unlock()

	return nil
}

// Get performs an authenticated GET. A 401/403 marks the session dead and
// returns ErrSessionExpired so the gateway can re-authenticate.
func (s *HTTPSession) Get(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("session rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.mu.Lock()
		s.alive = false
		s.mu.Unlock()

		return nil, fmt.Errorf("%w: status %d", apperrors.ErrSessionExpired, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// Close releases the session. Cookie state is dropped with the jar.
func (s *HTTPSession) Close() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()

	s.client.CloseIdleConnections()
}
