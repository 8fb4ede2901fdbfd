package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type contextKey string

const operatorKey contextKey = "operator"

// Operator is the authenticated admin identity attached to a request.
type Operator struct {
	Email string `json:"email"`
}

// OperatorFromContext は context からオペレーターを取得する
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	v, ok := ctx.Value(operatorKey).(Operator)
	return v, ok
}

// WithOperator は context にオペレーターをセットする
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// RequireAuth は認証必須ミドルウェア。セッションを検証し、Operator を context にセットする
func RequireAuth(sessionSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName())
			if err != nil {
				writeUnauthorized(w, "unauthorized")
				return
			}

			email, err := VerifySessionToken(cookie.Value, sessionSecret, time.Now())
			if err != nil {
				writeUnauthorized(w, "invalid_session")
				return
			}

			ctx := WithOperator(r.Context(), Operator{Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// DevOperatorEmail は開発用のダミーオペレーター（AUTH_REQUIRED=false 時に使用）
const DevOperatorEmail = "dev@localhost"

// DevAuth は開発用ミドルウェア。ダミーの管理者オペレーターを context にセットする
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithOperator(r.Context(), Operator{Email: DevOperatorEmail})
		ctx = WithIsAdmin(ctx, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
