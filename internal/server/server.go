package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jihwannnn/likebox-2024-test/internal/library"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/tasks"
	"github.com/jihwannnn/likebox-2024-test/internal/tokens"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the routes it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Deps holds everything the server dispatches to.
type Deps struct {
	Config     shared.ServerConfig
	Tokens     *tokens.Manager
	Reconciler *tasks.Reconciler
	Library    *library.Facade
	Verifier   IdentityVerifier
	Logger     *log.Logger
}

// Server exposes the callable functions, the OAuth callback and operational endpoints.
type Server struct {
	config    shared.ServerConfig
	tokens    *tokens.Manager
	reconcile *tasks.Reconciler
	library   *library.Facade
	verifier  IdentityVerifier
	state     *StateSigner
	functions map[string]function
	router    chi.Router
	logger    *log.Logger
}

// New builds a Server and its routes.
func New(deps Deps) (*Server, error) {
	if deps.Tokens == nil || deps.Reconciler == nil || deps.Library == nil {
		return nil, fmt.Errorf("%w: server dependencies", shared.ErrInvalidConfig)
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("%w: identity verifier", shared.ErrInvalidConfig)
	}
	if deps.Logger == nil {
		deps.Logger = shared.NopLogger()
	}

	state, err := NewStateSigner(deps.Config.StateSecret, DefaultStateTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    deps.Config,
		tokens:    deps.Tokens,
		reconcile: deps.Reconciler,
		library:   deps.Library,
		verifier:  deps.Verifier,
		state:     state,
		logger:    shared.WithLogger(deps.Logger, "component", "server"),
	}
	s.functions = s.registerFunctions()
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(logRequests(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	callback := NewCallbackHandler(s.tokens, s.state, s.logger)
	for _, route := range callback.Routes() {
		r.Method(http.MethodGet, route, callback)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(s.verifier))
		r.Post("/{function}", s.dispatch)
	})

	return r
}

// ServeHTTP implements [http.Handler] for the entire server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
