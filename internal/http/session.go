package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/promptlyprinted/forge/internal/domain"
)

const (
	userIDHeader       = "X-User-Id"
	guestSessionCookie = "guest_session"

	// guestCookieMaxAge keeps the guest identity stable across visits so
	// quota tracking holds up (one year, in seconds).
	guestCookieMaxAge = 365 * 24 * 60 * 60
)

// CallerResolver turns an inbound request into a CallerContext. The
// storefront's auth layer authenticates upstream and forwards the user id in
// a trusted header; everyone else is a guest identified by a client-held
// session cookie plus IP.
type CallerResolver struct{}

// NewCallerResolver creates a caller resolver (DI constructor).
func NewCallerResolver() *CallerResolver {
	return &CallerResolver{}
}

// Resolve determines the caller identity, issuing a guest session cookie
// when none is present so repeated calls from the same browser map to the
// same quota bucket.
func (cr *CallerResolver) Resolve(w http.ResponseWriter, r *http.Request) domain.CallerContext {
	if userID := r.Header.Get(userIDHeader); userID != "" {
		return domain.CallerContext{UserID: userID}
	}

	sessionID := ""
	if cookie, err := r.Cookie(guestSessionCookie); err == nil && cookie.Value != "" {
		sessionID = cookie.Value
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     guestSessionCookie,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   guestCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return domain.CallerContext{
		SessionID: sessionID,
		IPAddress: clientIP(r),
	}
}

// clientIP extracts the originating address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
