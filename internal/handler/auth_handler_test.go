package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/studioworks/backend/pkg/auth"
	"golang.org/x/oauth2"
)

const testSessionSecret = "test-session-secret-must-be-32bytes"

// --- helpers ---

func newTestAuthHandler() *AuthHandler {
	return NewAuthHandler(auth.NewAdminAllowList([]string{"ops@studio.test"}), AuthConfig{
		GoogleClientID:     "google-client-id",
		GoogleClientSecret: "google-secret",
		GitHubClientID:     "github-client-id",
		GitHubClientSecret: "github-secret",
		GoogleRedirectPath: "/api/auth/google/callback",
		GitHubRedirectPath: "/api/auth/github/callback",
		SessionSecret:      testSessionSecret,
		FrontendURL:        "http://localhost:3000",
		BackendURL:         "http://localhost:8080",
	})
}

// fakeProvider serves a token endpoint plus the Google and GitHub email endpoints.
func fakeProvider(t *testing.T, googleEmail string, githubEmails string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"email": googleEmail, "verified_email": true})
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(githubEmails))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// pointAt redirects both providers of h at srv.
func pointAt(h *AuthHandler, srv *httptest.Server) {
	ep := oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	h.google.config.Endpoint = ep
	h.github.config.Endpoint = ep
	h.google.fetchEmail = func(ctx context.Context, c *http.Client) (string, error) {
		return fetchGoogleEmail(ctx, c, srv.URL+"/userinfo")
	}
	h.github.fetchEmail = func(ctx context.Context, c *http.Client) (string, error) {
		return fetchGitHubEmail(ctx, c, srv.URL)
	}
}

func callbackRequest(path string) *http.Request {
	req := httptest.NewRequest("GET", path+"?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "s1"})
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- Tests ---

func TestAuthHandler_LoginURL_SetsStateCookie(t *testing.T) {
	h := newTestAuthHandler()
	for name, login := range map[string]http.HandlerFunc{
		"google": h.GoogleLoginURL,
		"github": h.GitHubLoginURL,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			login(rec, httptest.NewRequest("GET", "/api/auth/"+name+"/login", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			state := findCookie(rec, oauthStateCookieName)
			if state == nil || state.Value == "" {
				t.Fatal("expected oauth_state cookie to be set")
			}
			if !state.HttpOnly {
				t.Error("oauth_state cookie should be HttpOnly")
			}
			if !strings.Contains(body["url"], "state="+state.Value) {
				t.Errorf("expected url to carry the cookie state, got %s", body["url"])
			}
		})
	}
}

func TestAuthHandler_Callback_RejectsStateMismatch(t *testing.T) {
	h := newTestAuthHandler()
	req := httptest.NewRequest("GET", "/api/auth/google/callback?code=abc&state=wrong-state", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "correct-state"})
	rec := httptest.NewRecorder()

	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=invalid_state") {
		t.Errorf("expected invalid_state error redirect, got %s", loc)
	}
}

func TestAuthHandler_Callback_RejectsMissingStateCookie(t *testing.T) {
	h := newTestAuthHandler()
	req := httptest.NewRequest("GET", "/api/auth/github/callback?code=abc&state=some-state", nil)
	rec := httptest.NewRecorder()

	h.GitHubCallback(rec, req)

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=invalid_state") {
		t.Errorf("expected invalid_state error redirect, got %s", loc)
	}
}

func TestAuthHandler_GoogleCallback_IssuesSessionForOperator(t *testing.T) {
	srv := fakeProvider(t, "Ops@Studio.test", "[]")
	h := newTestAuthHandler()
	pointAt(h, srv)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("/api/auth/google/callback"))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "http://localhost:3000/admin" {
		t.Errorf("expected redirect to admin, got %s", loc)
	}
	session := findCookie(rec, auth.SessionCookieName())
	if session == nil {
		t.Fatal("expected a session cookie")
	}
	email, err := auth.VerifySessionToken(session.Value, auth.SessionSecretBytes(testSessionSecret), now)
	if err != nil {
		t.Fatalf("session token did not verify: %v", err)
	}
	if email != "ops@studio.test" {
		t.Errorf("expected normalized operator email, got %q", email)
	}
}

func TestAuthHandler_GoogleCallback_RejectsNonOperator(t *testing.T) {
	srv := fakeProvider(t, "stranger@x.com", "[]")
	h := newTestAuthHandler()
	pointAt(h, srv)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("/api/auth/google/callback"))

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=not_authorized") {
		t.Errorf("expected not_authorized redirect, got %s", loc)
	}
	if findCookie(rec, auth.SessionCookieName()) != nil {
		t.Error("no session may be issued to a non-operator")
	}
}

func TestAuthHandler_GitHubCallback_UsesPrimaryVerifiedEmail(t *testing.T) {
	srv := fakeProvider(t, "", `[
		{"email":"other@x.com","primary":false,"verified":true},
		{"email":"ops@studio.test","primary":true,"verified":true}
	]`)
	h := newTestAuthHandler()
	pointAt(h, srv)

	rec := httptest.NewRecorder()
	h.GitHubCallback(rec, callbackRequest("/api/auth/github/callback"))

	if findCookie(rec, auth.SessionCookieName()) == nil {
		t.Fatalf("expected a session cookie, redirect was %s", rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GitHubCallback_UnverifiedEmailFails(t *testing.T) {
	srv := fakeProvider(t, "", `[{"email":"ops@studio.test","primary":true,"verified":false}]`)
	h := newTestAuthHandler()
	pointAt(h, srv)

	rec := httptest.NewRecorder()
	h.GitHubCallback(rec, callbackRequest("/api/auth/github/callback"))

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=userinfo_failed") {
		t.Errorf("expected userinfo_failed redirect, got %s", loc)
	}
}

func TestAuthHandler_Logout_ClearsSession(t *testing.T) {
	h := newTestAuthHandler()
	rec := httptest.NewRecorder()

	h.Logout(rec, httptest.NewRequest("POST", "/api/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	c := findCookie(rec, auth.SessionCookieName())
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("expected an expiring empty session cookie, got %+v", c)
	}
}
