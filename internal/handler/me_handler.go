package handler

import (
	"encoding/json"
	"net/http"

	"github.com/studioworks/backend/pkg/auth"
)

// meResponse は GET /api/me のレスポンス
type meResponse struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Me は GET /api/me を処理する。認証ミドルウェアの後段に置く
func Me(w http.ResponseWriter, r *http.Request) {
	op, ok := auth.OperatorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(meResponse{
		Email:   op.Email,
		IsAdmin: auth.IsAdminFromContext(r.Context()),
	})
}
