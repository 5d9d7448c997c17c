package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flower-shop/internal/config"
	"flower-shop/internal/database"
	custommiddleware "flower-shop/internal/middleware"
	"flower-shop/internal/repository"
	"flower-shop/internal/service"
	"flower-shop/internal/storage"
	"flower-shop/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Dependencies are the long-lived clients the server is built from.
// Redis is optional; without it writes are not rate limited.
type Dependencies struct {
	DB     database.Service
	Redis  *redis.Client
	Images storage.ImageStore
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	router.Get("/health", s.health)

	// Initialize repositories
	db := deps.DB.DB()
	categoryRepo := repository.NewCategoryRepository(db)
	flowerRepo := repository.NewFlowerRepository(db)

	// Initialize services
	categoryService := service.NewCategoryService(categoryRepo, flowerRepo, logger)
	flowerService := service.NewFlowerService(flowerRepo, categoryRepo, deps.Images, logger)

	// Initialize handlers
	categoryHandler := transport.NewCategoryHandler(categoryService, logger)
	flowerHandler := transport.NewFlowerHandler(flowerService, cfg.Images.MaxUploadBytes, logger)
	imageHandler := transport.NewImageHandler(deps.Images, cfg.Images.PublicPrefix, logger)

	// Register routes
	writeGuard := s.writeGuard()
	categoryHandler.RegisterRoutes(router, writeGuard)
	flowerHandler.RegisterRoutes(router, writeGuard)
	imageHandler.RegisterRoutes(router)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "flower-shop"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// writeGuard builds the middleware chain in front of every mutating route:
// bearer auth with the admin role when a secret is configured, then rate limiting.
func (s *Server) writeGuard() func(http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler

	if s.config.JWT.Secret != "" {
		chain = append(chain,
			custommiddleware.AuthMiddleware(s.config.JWT.Secret, s.logger),
			custommiddleware.RequireAdmin(s.logger),
		)
	} else {
		s.logger.Warn("JWT_SECRET is not set, write routes are unauthenticated")
	}

	if s.config.RateLimit.Enabled && s.deps.Redis != nil {
		chain = append(chain, custommiddleware.RateLimitMiddleware(s.deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: s.config.RateLimit.Requests,
			Window:            s.config.RateLimit.Window,
			KeyPrefix:         "flower-shop:ratelimit",
		}, s.logger))
	}

	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}

	dbHealth := s.deps.DB.Health(r.Context())
	body["database"] = dbHealth
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}

	if s.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			// Rate limiting lets writes through while Redis is down.
			body["redis"] = map[string]string{"status": "down", "error": err.Error()}
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		} else {
			body["redis"] = map[string]string{"status": "up"}
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
