package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnconfiguredIsNil(t *testing.T) {
	assert.Nil(t, New(Config{}))
	assert.NotNil(t, New(Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/auth/callback"}))
}

func TestSessionStore(t *testing.T) {
	s := newSessionStore()

	token, err := s.create(User{Email: "a@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, ok := s.lookup(token)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", user.Email)

	_, ok = s.lookup("bogus")
	assert.False(t, ok)

	s.revoke(token)
	_, ok = s.lookup(token)
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	s := newSessionStore()
	token, err := s.create(User{Email: "a@example.com"})
	require.NoError(t, err)

	s.mu.Lock()
	sess := s.sessions[token]
	sess.expiresAt = time.Now().Add(-time.Minute)
	s.sessions[token] = sess
	s.mu.Unlock()

	_, ok := s.lookup(token)
	assert.False(t, ok, "expired session must not resolve")
}

func TestSessionTokensAreUnique(t *testing.T) {
	s := newSessionStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := s.create(User{Email: "a@example.com"})
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestEmailAllowlist(t *testing.T) {
	open := New(Config{ClientID: "id", RedirectURL: "http://x/cb"})
	assert.True(t, open.emailAllowed("anyone@example.com"))

	restricted := New(Config{
		ClientID:      "id",
		RedirectURL:   "http://x/cb",
		AllowedEmails: []string{" Alice@Example.com ", "bob@example.com"},
	})
	assert.True(t, restricted.emailAllowed("alice@example.com"))
	assert.True(t, restricted.emailAllowed("BOB@example.com"))
	assert.False(t, restricted.emailAllowed("mallory@example.com"))
}

func TestRequireSession(t *testing.T) {
	svc := New(Config{ClientID: "id", RedirectURL: "http://x/cb"})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := svc.RequireSession(next)

	t.Run("api request without session gets JSON 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("page request without session redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("valid session passes through", func(t *testing.T) {
		token, err := svc.sessions.create(User{Email: "a@example.com"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCallbackStateMismatch(t *testing.T) {
	svc := New(Config{ClientID: "id", RedirectURL: "http://x/cb"})

	t.Run("missing state cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=xyz", nil)
		rec := httptest.NewRecorder()
		svc.handleCallback(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("state does not match cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=xyz", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "other"})
		rec := httptest.NewRecorder()
		svc.handleCallback(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
		rec := httptest.NewRecorder()
		svc.handleCallback(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStartSetsStateCookie(t *testing.T) {
	svc := New(Config{ClientID: "id", RedirectURL: "http://x/cb"})

	req := httptest.NewRequest(http.MethodGet, "/auth/start", nil)
	rec := httptest.NewRecorder()
	svc.handleStart(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "accounts.google.com")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.Contains(t, rec.Header().Get("Location"), "state="+cookies[0].Value)
}

func TestLogoutClearsSession(t *testing.T) {
	svc := New(Config{ClientID: "id", RedirectURL: "http://x/cb"})
	token, err := svc.sessions.create(User{Email: "a@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	svc.handleLogout(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	_, ok := svc.sessions.lookup(token)
	assert.False(t, ok)
}
