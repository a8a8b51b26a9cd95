package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// mountRoutes registers middleware in order (outermost first):
//  1. Recoverer
//  2. RealIP
//  3. TraceID
//  4. RequestLogger
//  5. ContextTimeout
func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(TraceIDMiddleware)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout))

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/alarms", s.HandleAlarm)
	})
	s.router.Get("/health", s.HandleHealth)
}
