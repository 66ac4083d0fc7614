package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/db"
	"github.com/taskboard/apiserver/internal/handlers"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
)

const defaultRequestTimeout = 60 * time.Second

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Logger      zerolog.Logger
	UserService *services.UserService
	TaskService *services.TaskService
	Tokens      *auth.TokenIssuer
	Gate        *auth.Gate
	Health      handlers.Pinger
	HTTP        config.HTTPConfig
}

// Server wraps the HTTP server, router and the store it was built on.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	backend    *backend
	logger     zerolog.Logger
}

// backend is the store selected by STORE_DRIVER. close releases it.
type backend struct {
	users interface {
		services.UserRepository
		handlers.Pinger
	}
	tasks services.TaskRepository
	close func() error
}

// New constructs a Server from configuration. The caller must call
// Shutdown to release the store.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	userService := services.NewUserService(be.users, cfg.Auth.BcryptCost)
	taskService := services.NewTaskService(be.tasks)
	tokens := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenLifetime.Duration())

	router := NewRouter(Dependencies{
		Logger:      logger,
		UserService: userService,
		TaskService: taskService,
		Tokens:      tokens,
		Gate:        auth.NewGate(tokens, userService),
		Health:      be.users,
		HTTP:        cfg.HTTP,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		backend:    be,
		logger:     logger,
	}, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return &backend{
			users: store.NewMemoryUserRepository(),
			tasks: store.NewMemoryTaskRepository(),
			close: func() error { return nil },
		}, nil
	case config.StoreDriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := db.MigrateUp(cfg.Database.URL); err != nil {
				return nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		dbConn, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		logger.Info().Str("dsn", config.RedactDSN(cfg.Database.URL)).Msg("connected to database")
		return &backend{
			users: store.NewUserRepository(dbConn),
			tasks: store.NewTaskRepository(dbConn),
			close: dbConn.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
	}
}

// NewRouter builds the chi router with the full middleware stack and all routes.
func NewRouter(deps Dependencies) *chi.Mux {
	timeout := handlerTimeout(deps.HTTP.WriteTimeout)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		hlog.NewHandler(deps.Logger),
		requestIDLogField,
		hlog.AccessHandler(accessLog),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		cors.Handler(cors.Options{
			AllowedOrigins: deps.HTTP.AllowedOrigins(),
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
		handlers.LimitBody(deps.HTTP.MaxRequestBodySize),
	)

	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz(deps.Health))
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, deps.UserService, deps.Tokens, deps.Gate)
	})
	router.Route("/api/todos", func(r chi.Router) {
		handlers.TodoRouter(r, deps.TaskService, deps.Gate)
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"route not found"}` + "\n"))
	})

	return router
}

// handlerTimeout leaves a tenth of the server write deadline for the
// 504 response to reach the client.
func handlerTimeout(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return defaultRequestTimeout
	}
	return writeTimeout - writeTimeout/10
}

func requestIDLogField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request completed")
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.backend != nil && s.backend.close != nil {
		if closeErr := s.backend.close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", closeErr))
		}
	}
	return err
}
