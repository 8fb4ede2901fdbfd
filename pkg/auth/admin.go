package auth

import (
	"context"
	"net/http"
	"strings"
)

const isAdminKey contextKey = "is_admin"

// WithIsAdmin stores the admin flag in the context.
func WithIsAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, isAdminKey, isAdmin)
}

// IsAdminFromContext returns whether the authenticated operator may use the
// admin API. Returns false when not set.
func IsAdminFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}

// ParseAdminEmails splits a comma-separated ADMIN_EMAILS value, trimming
// whitespace, lower-casing and dropping empty entries.
func ParseAdminEmails(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// AdminAllowList answers whether an email belongs to an operator.
type AdminAllowList map[string]bool

// NewAdminAllowList builds an allow-list from parsed emails.
func NewAdminAllowList(emails []string) AdminAllowList {
	set := make(AdminAllowList, len(emails))
	for _, e := range emails {
		set[strings.ToLower(e)] = true
	}
	return set
}

// Contains reports whether email is allow-listed (case-insensitive).
func (a AdminAllowList) Contains(email string) bool {
	return email != "" && a[strings.ToLower(strings.TrimSpace(email))]
}

// AdminMiddleware sets the admin flag for operators on the allow-list. It
// never rejects a request; handlers decide what to do with non-admins.
// A flag already set (DevAuth) is preserved.
func AdminMiddleware(allow AdminAllowList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsAdminFromContext(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}
			op, ok := OperatorFromContext(r.Context())
			ctx := WithIsAdmin(r.Context(), ok && allow.Contains(op.Email))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
