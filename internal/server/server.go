package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/assignhub/apiserver/config"
	"github.com/assignhub/apiserver/internal/db"
	"github.com/assignhub/apiserver/internal/events"
	"github.com/assignhub/apiserver/internal/handlers"
	"github.com/assignhub/apiserver/internal/services"
	"github.com/assignhub/apiserver/internal/storage"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        events.Bus
}

// New constructs a Server with all dependencies wired from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	assignmentRepo := store.NewAssignmentRepository(dbConn)

	userService := services.NewUserService(userRepo)
	assignmentService := services.NewAssignmentService(assignmentRepo, userRepo)

	bus, err := newEventBus(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if bus != nil {
		assignmentService.WithEventBus(bus)
	}

	attachments, err := newAttachmentStorage(ctx, cfg)
	if err != nil {
		closeAll(dbConn, bus)
		return nil, err
	}
	if attachments != nil {
		if err := attachments.EnsureBucket(ctx); err != nil {
			closeAll(dbConn, bus)
			return nil, err
		}
		assignmentService.WithStorage(attachments)
	}

	authHandler := handlers.NewAuthHandler(userService, jwtSecret, cfg.JWT.TTL)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService, userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, authHandler, assignmentHandler)
	})
	router.Route("/api/admin", func(r chi.Router) {
		handlers.AdminRouter(r, authHandler, assignmentHandler)
	})

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
		bus:        bus,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	closeAll(s.db, s.bus)
	return s.httpServer.Close()
}

func newEventBus(ctx context.Context, cfg config.Config) (events.Bus, error) {
	switch cfg.MQ.Backend {
	case config.MQBackendNone:
		return nil, nil
	case config.MQBackendRabbitMQ:
		return events.NewRabbitMQBus(cfg.MQ.RabbitMQ)
	case config.MQBackendPubSub:
		return events.NewPubSubBus(ctx, cfg.MQ.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

func newAttachmentStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendNone:
		return nil, nil
	case config.StorageBackendMinio:
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	case config.StorageBackendGCS:
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func closeAll(dbConn *sql.DB, bus events.Bus) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
	if bus != nil {
		_ = bus.Close()
	}
}
