// Package api exposes the alarm notifier over HTTP. The monitoring
// subsystem's HTTP alarm action posts state changes to POST /v1/alarms; the
// server either handles them inline or enqueues them for the worker.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"safirnotify/internal/alarm"
	"safirnotify/internal/types"
)

// defaultRequestTimeout applies when Config.RequestTimeout is zero.
const defaultRequestTimeout = 30 * time.Second

// AlarmHandler runs one event through the notification pipeline.
// Implemented by *alarm.Handler.
type AlarmHandler interface {
	Handle(ctx context.Context, ev types.AlarmEvent) (alarm.Outcome, error)
}

// EventPublisher enqueues events for asynchronous handling.
// Implemented by *core.AlarmEventPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, msg types.AlarmMessage) error
}

// Config holds the Server dependencies. Exactly one of Handler and
// Publisher is required; Publisher wins when both are set.
type Config struct {
	Handler        AlarmHandler
	Publisher      EventPublisher
	Logger         types.Logger
	Clock          types.Clock
	RequestTimeout time.Duration
	HealthProbes   []HealthProbe
}

// Server owns the router and its dependencies.
type Server struct {
	handler        AlarmHandler
	publisher      EventPublisher
	logger         types.Logger
	clock          types.Clock
	validate       *validator.Validate
	requestTimeout time.Duration
	probes         []HealthProbe

	router *chi.Mux
}

// NewServer builds a Server with all routes mounted.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Handler == nil && cfg.Publisher == nil {
		return nil, errors.New("api: either Handler or Publisher is required")
	}

	s := &Server{
		handler:        cfg.Handler,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
		clock:          cfg.Clock,
		validate:       validator.New(),
		requestTimeout: cfg.RequestTimeout,
		probes:         cfg.HealthProbes,
		router:         chi.NewRouter(),
	}
	if s.logger == nil {
		s.logger = types.NopLogger{}
	}
	if s.clock == nil {
		s.clock = types.RealClock{}
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = defaultRequestTimeout
	}

	s.mountRoutes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() *chi.Mux {
	return s.router
}
