package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/config"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/httpapi"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/httpmiddleware"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/photostore"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/queue"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/registry"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/report"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/store"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/user"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:recorded")
	}

	regRepo := registry.NewRepository(db.Client)
	guard := auth.NewGuard(regRepo)

	userRepo := user.NewRepository(db.Client)
	users := user.NewService(userRepo, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TokenTTL)
	if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("warning: admin bootstrap failed: %v", err)
	}

	attRepo := attendance.NewRepository(db.Client)
	att := attendance.NewService(attRepo, regRepo, guard)
	reports := report.NewAggregator(report.NewRepository(db.Client), att, guard)

	// Photo storage client (nil when not configured)
	var photos *photostore.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		photos = photostore.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("photo storage configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("photo storage not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	h := &httpapi.Handler{
		Users:      users,
		Attendance: att,
		Reports:    reports,
		Registry:   regRepo,
		Guard:      guard,
		Queue:      q,
		Photos:     photos,
	}
	h.Register(r, cfg.JWTSigningKey, cfg.JWTIssuer)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
