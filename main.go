package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	rd "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"vouche/internal/config"
	"vouche/internal/database"
	"vouche/internal/events"
	"vouche/internal/handlers"
	"vouche/internal/middleware"
	"vouche/internal/repositories"
	"vouche/internal/services"
	"vouche/pkg/logging"
	"vouche/pkg/rabbitmq"
)

// server bundles the HTTP app with the resources it owns.
type server struct {
	app    *fiber.App
	db     *gorm.DB
	mq     *rabbitmq.Client
	rdb    *rd.Client
	logger *slog.Logger
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	srv, err := newServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer srv.close()

	// --- Start HTTP Server ---
	logger.Info("starting server", "port", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.app.Listen(cfg.AppPort); err != nil {
			logger.Error("server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logger.Info("shutting down server")

	if err := srv.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}
	logger.Info("server gracefully stopped")
}

// newServer opens the database and optional brokers, wires every layer and registers the routes.
func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server, error) {
	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	srv := &server{db: db, logger: logger}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
			Queue:    cfg.RabbitMQQueue,
		}, logger)
		if err != nil {
			srv.close()
			return nil, err
		}
		srv.mq = mq
		publisher = mq
		if err := mq.ConsumeOrderEvents(events.DeliveryLogger(logger)); err != nil {
			logger.Warn("failed to start order event consumer", "error", err)
		}
	} else {
		logger.Info("RABBITMQ_URL not set, order events disabled")
	}

	// --- Redis (optional) ---
	if cfg.RedisAddr != "" {
		srv.rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := srv.rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, order rate limiting will fail open", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	} else {
		logger.Info("REDIS_ADDR not set, order rate limiting disabled")
	}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	codeRepo := repositories.NewGORMGiftCodeRepository(db)
	transactor := repositories.NewGORMTransactor(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	productService := services.NewProductService(productRepo, categoryRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	inventoryService := services.NewInventoryService(codeRepo, productRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, transactor, publisher, logger)

	if cfg.AdminUsername != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			srv.close()
			return nil, err
		}
	}

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "vouche",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// --- API Routes ---
	guards := handlers.Guards{
		Auth:       middleware.AuthRequired(authService, logger),
		Admin:      middleware.AdminRequired(),
		OrderLimit: middleware.RedisRateLimit(srv.rdb, "orders", cfg.OrderRateLimit, cfg.OrderRateWindow, logger),
	}
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(apiV1, guards)
	handlers.NewCategoryHandler(categoryService, logger).RegisterRoutes(apiV1, guards)
	handlers.NewProductHandler(productService, inventoryService, logger).RegisterRoutes(apiV1, guards)
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(apiV1, guards)

	// --- Health Check Endpoint ---
	app.Get("/health", srv.handleHealth)

	srv.app = app
	return srv, nil
}

func (s *server) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "up",
		"rabbitmq": s.mq != nil,
		"redis":    s.rdb != nil,
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		status = fiber.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "down"
	}
	return c.Status(status).JSON(body)
}

// close releases every resource owned by the server.
func (s *server) close() {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Warn("error closing rabbitmq client", "error", err)
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("error closing redis client", "error", err)
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Warn("error closing database", "error", err)
		}
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
}
