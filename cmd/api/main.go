package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bizmatters/diabetes-screener/internal/auth"
	"github.com/bizmatters/diabetes-screener/internal/config"
	"github.com/bizmatters/diabetes-screener/internal/gateway"
	"github.com/bizmatters/diabetes-screener/internal/inference"
	"github.com/bizmatters/diabetes-screener/internal/metrics"
	"github.com/bizmatters/diabetes-screener/internal/orchestration"
	"github.com/bizmatters/diabetes-screener/internal/screening"

	_ "github.com/bizmatters/diabetes-screener/docs" // swagger docs
)

// @title Diabetes Screener API
// @version 1.0
// @description Collects eight clinical measurements and returns a diabetes risk prediction.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	// Initialize OpenTelemetry
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	// The database is only needed for the model registry
	var pool *pgxpool.Pool
	var registry *inference.Registry
	if cfg.DatabaseURL != "" {
		pool, err = connectDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database after retries: %v", err)
		}
		defer pool.Close()
		registry = inference.NewRegistry(pool)
	}

	artifacts, err := inference.Load(context.Background(), inference.Options{
		Backend:         inference.Backend(cfg.ModelBackend),
		ScalerPath:      cfg.ScalerPath,
		ClassifierPath:  cfg.ClassifierPath,
		ONNXModelPath:   cfg.ONNXModelPath,
		ONNXLibraryPath: cfg.ONNXLibraryPath,
		InferenceURL:    cfg.InferenceURL,
		ModelName:       cfg.ModelName,
		Registry:        registry,
	})
	if err != nil {
		log.Fatalf("Failed to load model artifacts: %v", err)
	}
	defer artifacts.Close()
	log.Printf(`{"level":"info","message":"Model artifacts loaded","backend":%q,"source":%q}`, cfg.ModelBackend, artifacts.Source)

	screeningMetrics, err := metrics.NewScreeningMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize orchestration layer
	store := screening.NewStore()
	pipeline := screening.NewPipeline(artifacts.Scaler, artifacts.Classifier)
	service := orchestration.NewService(store, pipeline, screeningMetrics)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go service.RunSweeper(sweepCtx, cfg.SessionSweepInterval, cfg.SessionTTL)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	// Initialize gateway layer
	handler := gateway.NewHandler(service, jwtManager, cfg.SessionTTL)
	stream := gateway.NewScreeningStream(service)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(structuredLoggingMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if registry != nil {
			if err := registry.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  "database connection failed",
				})
				return
			}
		}
		if !artifacts.IsHealthy(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "inference backend unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "sessions": store.Len()})
	})

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	// Public routes
	api.POST("/sessions", handler.CreateSession)
	api.GET("/fields", handler.ListFields)

	// Session routes (require a session token)
	protected := api.Group("")
	protected.Use(auth.RequireSession(jwtManager))
	protected.POST("/sessions/refresh", handler.RefreshSession)
	protected.DELETE("/sessions", handler.EndSession)
	protected.POST("/ask", handler.Ask)
	protected.POST("/input", handler.Input)
	protected.POST("/predict", handler.Predict)
	protected.POST("/restart", handler.Restart)
	protected.GET("/ws/screening", stream.Stream)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Diabetes Screener API server on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopSweeper()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("Server exited")
}

// connectDB opens a pool, retrying while the database starts up
func connectDB(dbURL string) (*pgxpool.Pool, error) {
	log.Println("Connecting to PostgreSQL database...")

	var pool *pgxpool.Pool
	var err error
	for i := 0; i < 10; i++ {
		pool, err = pgxpool.New(context.Background(), dbURL)
		if err == nil {
			err = pool.Ping(context.Background())
			if err == nil {
				log.Println("Connected to PostgreSQL database")
				return pool, nil
			}
			pool.Close()
		}
		log.Printf("Waiting for database... (attempt %d/10): %v", i+1, err)
		time.Sleep(3 * time.Second)
	}
	return nil, err
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if id, ok := auth.SessionID(c); ok {
			logEntry["session_id"] = id.String()
		}

		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
