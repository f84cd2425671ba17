package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

const sessionCookie = "nav_session"

func newPlatformServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value != "ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestHTTPSession_LoginAndGet(t *testing.T) {
	srv := newPlatformServer(t)

	s, err := NewHTTPSession(HTTPConfig{
		BaseURL:  srv.URL,
		Email:    "ops@example.com",
		Password: "secret",
		RPS:      100,
	})
	require.NoError(t, err)

	t.Cleanup(s.Close)

	ctx := context.Background()

	assert.False(t, s.Alive(ctx))

	require.NoError(t, s.Login(ctx))
	assert.True(t, s.Alive(ctx))

	body, err := s.Get(ctx, srv.URL+"/data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestHTTPSession_LoginRejected(t *testing.T) {
	srv := newPlatformServer(t)

	s, err := NewHTTPSession(HTTPConfig{
		BaseURL:  srv.URL,
		Email:    "ops@example.com",
		Password: "wrong",
		RPS:      100,
	})
	require.NoError(t, err)

	t.Cleanup(s.Close)

	err = s.Login(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLoginRejected)
	assert.False(t, s.Alive(context.Background()))
}

func TestHTTPSession_GetWithoutLoginExpires(t *testing.T) {
	srv := newPlatformServer(t)

	s, err := NewHTTPSession(HTTPConfig{
		BaseURL: srv.URL,
		RPS:     100,
	})
	require.NoError(t, err)

	t.Cleanup(s.Close)

	_, err = s.Get(context.Background(), srv.URL+"/data")
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestHTTPFactory_IndependentSessions(t *testing.T) {
	srv := newPlatformServer(t)
	factory := NewHTTPFactory(HTTPConfig{
		BaseURL:  srv.URL,
		Password: "secret",
		RPS:      100,
	})

	first, err := factory.New()
	require.NoError(t, err)

	t.Cleanup(first.Close)

	second, err := factory.New()
	require.NoError(t, err)

	t.Cleanup(second.Close)

	require.NoError(t, first.Login(context.Background()))

	// The second session has its own cookie jar and is still unauthenticated.
	assert.True(t, first.Alive(context.Background()))
	assert.False(t, second.Alive(context.Background()))
}
