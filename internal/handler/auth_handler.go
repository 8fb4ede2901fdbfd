package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studioworks/backend/pkg/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oauthStateCookieName = "oauth_state"

// generateOAuthState は CSRF 対策用のランダム state 文字列を生成する
func generateOAuthState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// verifyOAuthState は state クッキーとクエリパラメータを照合する
func verifyOAuthState(r *http.Request) bool {
	cookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return cookie.Value == r.URL.Query().Get("state")
}

var githubEndpoint = oauth2.Endpoint{
	AuthURL:  "https://github.com/login/oauth/authorize",
	TokenURL: "https://github.com/login/oauth/access_token",
}

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubAPIBase     = "https://api.github.com"
)

// AuthConfig は AuthHandler の設定
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	GoogleRedirectPath string
	GitHubRedirectPath string
	SessionSecret      string
	FrontendURL        string
	BackendURL         string
	// SecureCookies marks session and state cookies Secure (production).
	SecureCookies bool
}

// oauthProvider is one OAuth login flow: its client config and how to read
// the verified email address once a token is obtained.
type oauthProvider struct {
	name       string
	config     *oauth2.Config
	fetchEmail func(ctx context.Context, client *http.Client) (string, error)
}

// AuthHandler runs the OAuth login flows and issues operator sessions.
// Only addresses on the admin allow-list receive a session.
type AuthHandler struct {
	google        *oauthProvider
	github        *oauthProvider
	admins        auth.AdminAllowList
	sessionSecret []byte
	frontendURL   string
	secure        bool
	now           func() time.Time
}

// NewAuthHandler は AuthHandler を生成する
func NewAuthHandler(admins auth.AdminAllowList, cfg AuthConfig) *AuthHandler {
	redirectBase := cfg.BackendURL
	if redirectBase == "" {
		redirectBase = "http://localhost:8080"
	}

	return &AuthHandler{
		google: &oauthProvider{
			name: "google",
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  redirectBase + cfg.GoogleRedirectPath,
				Scopes:       []string{"email"},
				Endpoint:     google.Endpoint,
			},
			fetchEmail: func(ctx context.Context, client *http.Client) (string, error) {
				return fetchGoogleEmail(ctx, client, googleUserInfoURL)
			},
		},
		github: &oauthProvider{
			name: "github",
			config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  redirectBase + cfg.GitHubRedirectPath,
				Scopes:       []string{"user:email"},
				Endpoint:     githubEndpoint,
			},
			fetchEmail: func(ctx context.Context, client *http.Client) (string, error) {
				return fetchGitHubEmail(ctx, client, githubAPIBase)
			},
		},
		admins:        admins,
		sessionSecret: auth.SessionSecretBytes(cfg.SessionSecret),
		frontendURL:   cfg.FrontendURL,
		secure:        cfg.SecureCookies,
		now:           time.Now,
	}
}

// GoogleLoginURL は Google OAuth の認証 URL を返す（GET /api/auth/google/login）
func (h *AuthHandler) GoogleLoginURL(w http.ResponseWriter, r *http.Request) {
	h.loginURL(w, h.google)
}

// GoogleCallback は OAuth コールバックを処理する（GET /api/auth/google/callback）
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, h.google)
}

// GitHubLoginURL は GitHub OAuth の認証 URL を返す（GET /api/auth/github/login）
func (h *AuthHandler) GitHubLoginURL(w http.ResponseWriter, r *http.Request) {
	h.loginURL(w, h.github)
}

// GitHubCallback は OAuth コールバックを処理する（GET /api/auth/github/callback）
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, h.github)
}

func (h *AuthHandler) loginURL(w http.ResponseWriter, p *oauthProvider) {
	state := generateOAuthState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"url": p.config.AuthCodeURL(state)})
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request, p *oauthProvider) {
	validState := verifyOAuthState(r)
	h.clearCookie(w, oauthStateCookieName)
	if !validState {
		h.redirectError(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "no_code")
		return
	}

	token, err := p.config.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth exchange failed", "provider", p.name, "error", err)
		h.redirectError(w, r, "exchange_failed")
		return
	}

	email, err := p.fetchEmail(r.Context(), p.config.Client(r.Context(), token))
	if err != nil {
		slog.Warn("oauth userinfo failed", "provider", p.name, "error", err)
		h.redirectError(w, r, "userinfo_failed")
		return
	}

	if !h.admins.Contains(email) {
		slog.Warn("login rejected: not an operator", "provider", p.name, "email", email)
		h.redirectError(w, r, "not_authorized")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName(),
		Value:    auth.CreateSessionToken(strings.ToLower(email), h.sessionSecret, h.now()),
		Path:     "/",
		MaxAge:   int(auth.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	slog.Info("operator signed in", "provider", p.name, "email", email)
	http.Redirect(w, r, h.frontendURL+"/admin", http.StatusFound)
}

// Logout はログアウトする（POST /api/auth/logout）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.SessionCookieName())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
		Expires:  time.Unix(0, 0),
	})
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/?error="+code, http.StatusFound)
}

// fetchGoogleEmail reads the verified email from the Google userinfo endpoint.
func fetchGoogleEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := getJSON(ctx, client, url, &info); err != nil {
		return "", err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return "", errors.New("google account has no verified email")
	}
	return info.Email, nil
}

// fetchGitHubEmail returns the primary verified address. GitHub hides the
// profile email when it is private, so the emails endpoint is authoritative.
func fetchGitHubEmail(ctx context.Context, client *http.Client, apiBase string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, apiBase+"/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", errors.New("github account has no primary verified email")
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
