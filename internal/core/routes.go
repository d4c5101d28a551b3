package core

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes configures the middleware stack and mounts all routes on the
// server's router. Middleware order matters:
//
//  1. Recoverer          - outermost, catches panics from everything below
//  2. ContextTimeout     - bounds total request processing time
//  3. RequestID          - correlation ID available to all subsequent logs
//  4. SecurityHeaders    - present on every response, including errors
//  5. RequestLogger      - logs after timeout/ID are established
//  6. CORS               - before auth so preflights never require a session
//  7. Auth               - resolves the session cookie to an Actor
//  8. CSRF               - validates mutating requests against the session
func (s *Server) MountRoutes() {
	r := s.router

	r.Use(s.Recoverer)
	r.Use(ContextTimeoutMiddleware(s.Config.Server.RequestTimeout))
	r.Use(RequestIDMiddleware)
	r.Use(s.SecurityHeadersMiddleware)
	r.Use(RequestLogger(s.Logger, []string{"Authorization", "Cookie", "X-CSRF-Token"}))
	r.Use(NewCORSMiddleware(s.Config.Security.CorsAllowedOrigins))
	r.Use(s.AuthMiddleware)
	r.Use(s.CSRFMiddleware)

	r.Get("/health", s.HandleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		for _, register := range s.V1RouteRegistrars {
			register(v1)
		}
	})
}
