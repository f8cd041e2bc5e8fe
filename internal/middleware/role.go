package middleware

import (
	"net/http"

	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/services"
)

// RequireWriter refuses requests unless the device runs as the admin of
// its book. Viewer devices only mirror the book store.
func RequireWriter(role func() models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !role().IsWriter() {
				services.SendErrorResponse(w, "This device is a read-only viewer", http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceType echoes the device type guessed from the User-Agent header in
// X-Device-Type.
func DeviceType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := models.DetectDeviceType(r.UserAgent())
		w.Header().Set("X-Device-Type", string(device))
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
