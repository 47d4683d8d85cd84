package middleware

import (
	"net/http"

	"exemplarparty/internal/service"
)

const exportPasswordHeader = "X-Export-Password"

// AuthMiddleware guards operator endpoints
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireExportPassword checks the export password from the header or the
// password query param
func (m *AuthMiddleware) RequireExportPassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		password := r.Header.Get(exportPasswordHeader)
		if password == "" {
			password = r.URL.Query().Get("password")
		}
		if password == "" {
			http.Error(w, `{"error":"missing export password"}`, http.StatusUnauthorized)
			return
		}
		if !m.authSvc.CheckExportPassword(password) {
			http.Error(w, `{"error":"invalid export password"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
