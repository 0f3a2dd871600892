package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/userfolio/webapp/config"
	"github.com/userfolio/webapp/internal/db"
	"github.com/userfolio/webapp/internal/handlers"
	"github.com/userfolio/webapp/internal/services"
	"github.com/userfolio/webapp/internal/storage"
	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/internal/web"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	logger     *zap.Logger
}

// New constructs a Server with all dependencies wired.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.Session.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	photoStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)

	userService := services.NewUserService(userRepo)
	sessionService, err := services.NewSessionService(sessionRepo, cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	uploadService := services.NewUploadService(photoStorage, cfg.Upload.MaxBytes)

	authHandler := handlers.NewAuthHandler(userService, sessionService, uploadService, renderer, logger)
	profileHandler := handlers.NewProfileHandler(userService, uploadService, renderer, logger)
	sessionMiddleware := handlers.RequireSession(sessionService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	handlers.AuthRouter(router, authHandler)
	handlers.ProfileRouter(router, profileHandler, sessionMiddleware)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
