package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/cache"
	"github.com/swifttransit/booking-core/internal/config"
	"github.com/swifttransit/booking-core/internal/database"
	"github.com/swifttransit/booking-core/internal/handlers"
	"github.com/swifttransit/booking-core/internal/hold"
	"github.com/swifttransit/booking-core/internal/lock"
	"github.com/swifttransit/booking-core/internal/queue"
	"github.com/swifttransit/booking-core/internal/services"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SwiftTransit Booking Core")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize the cache store. A missing Redis degrades to an
	// in-process store instead of failing startup; locks then only
	// serialize within this process.
	var store cache.Store
	if client := cache.NewRedisClient(cfg.Redis); client != nil {
		store = cache.NewRedisStore(client, logger)
		logger.Info("Redis connection established")
	} else {
		store = cache.NewMemoryStore()
		logger.Warn("Redis unreachable; falling back to in-process cache store")
	}

	// Initialize the booking core
	locker := lock.NewLocker(store, logger)
	holds := hold.NewManager(store, logger, cfg.Booking.SeatHoldTTL)
	jobs := queue.NewManager(cfg.Queue, logger)

	routeRepo := database.NewRouteRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	availability := services.NewAvailabilityService(bookingRepo, holds, logger)
	bookingSvc := services.NewBookingService(
		routeRepo, bookingRepo, availability, holds, locker, store, jobs,
		cfg.Booking, logger,
	)
	maintenance := services.NewMaintenanceService(
		bookingRepo, bookingSvc,
		&services.LogNotifier{Logger: logger},
		&services.LogAnalyticsRecorder{Logger: logger},
		logger,
	)
	maintenance.RegisterHandlers(jobs)

	jobs.Start()
	defer jobs.Stop()

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
	}))

	handlers.NewBookingHandler(bookingSvc, logger).RegisterRoutes(router)
	handlers.NewHealthHandler(db, store, jobs).RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine for graceful shutdown
	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
