// Package server exposes the waitlist, the notification relay and the admin views over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/jwt"
	gatemw "github.com/MrEthical07/waitgate/middleware"
	"github.com/MrEthical07/waitgate/notify/discord"
	"github.com/MrEthical07/waitgate/waitlist"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// WebhookSender relays payloads to the notification channel. *discord.Client implements it.
type WebhookSender interface {
	Configured() bool
	Send(ctx context.Context, p discord.Payload) (discord.Result, error)
}

// Deps are the collaborators the routes call into. Tokens and Metrics are optional; a nil
// value leaves the matching routes unregistered.
type Deps struct {
	Gate     *waitgate.Gate
	Waitlist *waitlist.Service
	Discord  WebhookSender
	Tokens   *jwt.Manager
	Metrics  http.Handler
	Logger   *zap.Logger
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
}

// Server is the HTTP front of the waitlist.
type Server struct {
	router *chi.Mux
	server *http.Server
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func New(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(gatemw.ClientIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "The requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "The requested method is not allowed for this resource")
	})

	s := &Server{
		router: r,
		deps:   deps,
		opts:   opts,
		logger: deps.Logger,
		now:    time.Now,
	}
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Start listens on the configured address and blocks until the server stops. Start after
// Shutdown returns nil without listening.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.opts.Addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully. It is safe to call before or concurrently with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", waitgate.ClientIPFromContext(r.Context())),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
