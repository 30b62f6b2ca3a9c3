package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"audiophile-store/internal/cart"
	"audiophile-store/internal/catalog"
	"audiophile-store/internal/config"
	"audiophile-store/internal/email"
	custommiddleware "audiophile-store/internal/middleware"
	"audiophile-store/internal/repository"
	"audiophile-store/internal/service"
	"audiophile-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       *sql.DB
	redis    *redis.Client
	checkout service.CheckoutService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Shop.AllowedOrigins, cfg.Server.Env == "development"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "ok"}
		if err := db.PingContext(r.Context()); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			health["status"] = "degraded"
			health["redis"] = err.Error()
		}

		status := http.StatusOK
		if health["status"] != "ok" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	// Build the product catalog from embedded data
	productCatalog, err := catalog.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build product catalog: %w", err)
	}

	// Initialize cart storage and store
	cartStorage := cart.NewRedisStorage(redisClient)
	cartStore := cart.NewStore(cartStorage, logger)

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)

	// Initialize mailer
	mailer, err := email.NewSMTPMailer(cfg.SMTP, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	// Initialize services
	checkoutService := service.NewCheckoutService(cartStore, orderRepo, mailer, cfg.Shop.BaseURL, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(productCatalog, logger)
	cartHandler := transport.NewCartHandler(cartStore, productCatalog, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)
	orderHandler := transport.NewOrderHandler(orderRepo, logger)

	// Checkout submissions are rate limited per client
	checkoutRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.Shop.CheckoutRateLimit,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router, checkoutRateLimit)
	orderHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		checkout: checkoutService,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Wait for in-flight confirmation emails before tearing down connections
	s.checkout.Close()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
