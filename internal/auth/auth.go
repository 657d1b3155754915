// Package auth gates the dashboard behind a Google sign-in. It is optional:
// when no OAuth client is configured the server runs open, which is the
// sensible default on a trusted LAN.
package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

const (
	sessionCookie = "tvctl_session"
	stateCookie   = "tvctl_oauth_state"

	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AllowedEmails restricts sign-in to these addresses. Empty means any
	// Google account is accepted.
	AllowedEmails []string
}

// Service implements the login flow and session checks.
type Service struct {
	oauth    *oauth2.Config
	allowed  map[string]struct{}
	sessions *sessionStore
}

// New returns a configured service, or nil when no client id is set.
func New(cfg Config) *Service {
	if cfg.ClientID == "" {
		return nil
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedEmails))
	for _, email := range cfg.AllowedEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		allowed:  allowed,
		sessions: newSessionStore(),
	}
}

// Mount attaches the login routes.
func (s *Service) Mount(r chi.Router) {
	r.Get("/login", s.handleLogin)
	r.Get("/auth/start", s.handleStart)
	r.Get("/auth/callback", s.handleCallback)
	r.Get("/auth/logout", s.handleLogout)
	r.Get("/api/user", s.handleUser)
}

// RequireSession rejects requests without a live session. API calls get a
// JSON 401, page loads get bounced to the login screen.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"ok":false,"message":"authentication required"}`))
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) sessionUser(r *http.Request) (User, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return User{}, false
	}
	return s.sessions.lookup(cookie.Value)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, loginPage)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCk, err := r.Cookie(stateCookie)
	if err != nil || stateCk.Value == "" || r.URL.Query().Get("state") != stateCk.Value {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	user, err := s.fetchUser(r, token)
	if err != nil {
		slog.Warn("fetching user info failed", "error", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	if !s.emailAllowed(user.Email) {
		slog.Warn("sign-in rejected", "email", user.Email)
		http.Error(w, "account not allowed", http.StatusForbidden)
		return
	}

	sessionToken, err := s.sessions.create(user)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("user signed in", "email", user.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Service) handleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"message":"not signed in"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": user})
}

func (s *Service) fetchUser(r *http.Request, token *oauth2.Token) (User, error) {
	client := s.oauth.Client(r.Context(), token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return User{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("userinfo request: status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if user.Email == "" {
		return User{}, fmt.Errorf("userinfo response missing email")
	}
	return user, nil
}

func (s *Service) emailAllowed(email string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[strings.ToLower(email)]
	return ok
}

const loginPage = `<!doctype html>
<html>
<head><title>TV Control</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
  <h1>TV Control Dashboard</h1>
  <p><a href="/auth/start">Sign in with Google</a></p>
</body>
</html>
`
