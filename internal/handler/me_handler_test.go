package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studioworks/backend/pkg/auth"
)

func TestMe_NoOperator_Returns401(t *testing.T) {
	rec := httptest.NewRecorder()
	Me(rec, httptest.NewRequest("GET", "/api/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMe_ThroughSessionMiddleware(t *testing.T) {
	secret := auth.SessionSecretBytes(testSessionSecret)
	allow := auth.NewAdminAllowList([]string{"ops@studio.test"})
	h := auth.RequireAuth(secret)(auth.AdminMiddleware(allow)(http.HandlerFunc(Me)))

	tests := []struct {
		name      string
		email     string
		wantAdmin bool
	}{
		{"operator", "ops@studio.test", true},
		{"signed but not allow-listed", "former@studio.test", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/me", nil)
			req.AddCookie(&http.Cookie{
				Name:  auth.SessionCookieName(),
				Value: auth.CreateSessionToken(tt.email, secret, time.Now()),
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var resp meResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Email != tt.email || resp.IsAdmin != tt.wantAdmin {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestMe_InvalidSession_Returns401(t *testing.T) {
	h := auth.RequireAuth(auth.SessionSecretBytes(testSessionSecret))(http.HandlerFunc(Me))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName(), Value: "bad-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
