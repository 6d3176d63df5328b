package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openwheels/rental-backend/internal/config"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/handlers"
	"github.com/openwheels/rental-backend/internal/middleware"
	"github.com/openwheels/rental-backend/internal/services"
	"github.com/openwheels/rental-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
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

	logger.Info("Starting OpenWheels Rental Backend")
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

	// Initialize repositories
	carRepo := database.NewCarRepository(db)
	rentalRepo := database.NewRentalRepository(db)
	txnRepo := database.NewTransactionRepository(db)
	reviewRepo := database.NewReviewRepository(db)
	webhookRepo := database.NewWebhookEventRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	availabilityService := services.NewAvailabilityService(rentalRepo, logger)
	paymentService := services.NewPaymentService(&cfg.Payment, webhookRepo, txnRepo, rentalRepo, logger)
	if !paymentService.IsConfigured() {
		logger.Warn("Payment processor credentials missing, running against the sandbox defaults")
	}

	bookingService := services.NewBookingService(carRepo, rentalRepo, availabilityService, paymentService, cfg.Booking, logger)
	rentalService := services.NewRentalService(rentalRepo, carRepo, cfg.Booking, logger)
	reviewService := services.NewReviewService(reviewRepo, rentalRepo, logger)
	carService := services.NewCarService(carRepo, availabilityService, paymentService, logger)
	receiptService := services.NewReceiptService(rentalRepo, carRepo, txnRepo, logger)

	// Start the stale pending sweep
	cronService := services.NewCronService(rentalService, cfg.Booking.ReaperSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	rentalHandler := handlers.NewRentalHandler(rentalService, receiptService, logger)
	carHandler := handlers.NewCarHandler(carService, reviewService, logger)
	reviewHandler := handlers.NewReviewHandler(reviewService, logger)
	webhookHandler := handlers.NewPaymentWebhookHandler(paymentService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Payment processor webhook (authenticated by signature, not JWT)
		v1.POST("/payments/webhook", webhookHandler.HandleWebhook)

		// Car routes
		cars := v1.Group("/cars")
		{
			// Public routes (no authentication)
			cars.GET("", carHandler.ListCars)
			cars.GET("/:id", carHandler.GetCar)
			cars.GET("/:id/availability", carHandler.CheckAvailability)
			cars.GET("/:id/reviews", carHandler.ListReviews)

			// Protected routes (require JWT authentication)
			carsProtected := cars.Group("")
			carsProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				carsProtected.GET("/mine", carHandler.ListOwnCars)
				carsProtected.POST("", carHandler.CreateCar)
				carsProtected.PATCH("/:id", carHandler.UpdateCar)
				carsProtected.DELETE("/:id", carHandler.DeleteCar)
				carsProtected.POST("/:id/payouts", carHandler.EnablePayouts)
			}
		}

		// Booking routes (all protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/intent", bookingHandler.CreatePaymentIntent)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Rental routes (all protected)
		rentals := v1.Group("/rentals")
		rentals.Use(middleware.AuthMiddleware(jwtService))
		{
			rentals.GET("", rentalHandler.ListRentals)
			rentals.GET("/:id/receipt", rentalHandler.GetReceipt)
			rentals.GET("/:id/review", reviewHandler.GetRentalReview)

			// Administrative edits
			rentals.PATCH("/:id", middleware.RequireRole(middleware.RoleAdmin), rentalHandler.UpdateRental)
		}

		// Review routes (protected)
		reviews := v1.Group("/reviews")
		reviews.Use(middleware.AuthMiddleware(jwtService))
		{
			reviews.POST("", reviewHandler.SubmitReview)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/webhook-events", webhookHandler.ListEvents)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
