package core

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"nimbus/internal/types"
)

// publicPathPrefixes lists routes reachable without a session. Everything
// else under the router requires a valid session cookie. Logout is public
// so that a client holding a stale or missing cookie can still clear its
// state; the handler revokes best-effort.
var publicPathPrefixes = []string{
	"/health",
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/logout",
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPathPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// AuthMiddleware authenticates requests using the session cookie. On
// success it stores the resolved Actor and the session's CSRF token in the
// request context. Requests to public paths pass through unauthenticated.
//
// A nil Authenticator disables authentication entirely; this is only used
// by tests that exercise handlers directly.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(s.Config.Auth.CookieName)
		if err != nil || cookie.Value == "" {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthSessionMissing,
				"authentication required",
				nil,
			))
			return
		}

		actor, csrfToken, err := s.Authenticator.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			s.Logger.Warn("session resolution failed",
				"path", r.URL.Path,
				"client_ip", ExtractClientIP(r),
				"error", err,
			)
			Error(w, r, err)
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		ctx = types.WithSessionCSRFToken(ctx, csrfToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFMiddleware validates the X-CSRF-Token header on state-changing
// requests against the token bound to the caller's session. Safe methods
// and public paths are exempt. Must run after AuthMiddleware, which places
// the session token in the context.
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		sessionToken, ok := types.GetSessionCSRFToken(r.Context())
		if !ok {
			// Unauthenticated request slipped past auth (nil Authenticator
			// in tests); nothing to validate against.
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		if headerToken == "" {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthCSRFInvalid,
				"missing CSRF token",
				nil,
			))
			return
		}

		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(sessionToken)) != 1 {
			s.Logger.Warn("CSRF token mismatch",
				"path", r.URL.Path,
				"client_ip", ExtractClientIP(r),
			)
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthCSRFInvalid,
				"invalid CSRF token",
				nil,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}
