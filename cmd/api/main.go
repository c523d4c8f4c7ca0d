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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"faceattend/internal/attendance"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/faceclient"
	"faceattend/internal/handler"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/qr"
	"faceattend/internal/store"
	"faceattend/internal/timetable"
	"faceattend/internal/users"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	tables := store.Tables{
		Users:      cfg.UsersTable,
		Attendance: cfg.AttendanceTable,
		Timetable:  cfg.TimetableTable,
	}
	if err := store.EnsureSchema(ctx, db.Client, tables); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable, QR sessions will fail until it is", zap.String("addr", cfg.RedisAddr))
	}

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceCollection, cfg.FaceSkip)
	if err := face.EnsureCollection(ctx); err != nil {
		// Tolerated at startup: registration degrades to "no match" and
		// approval will surface the failure per request.
		logger.Warn("face collection bootstrap failed", zap.Error(err))
	}

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Info("cloudinary not configured, approved photos will not be stored")
	}

	userRepo := users.NewRepository(db.Client, cfg.UsersTable)
	attRepo := attendance.NewRepository(db.Client, cfg.AttendanceTable)
	sessionRepo := attendance.NewSessionRepository(redisClient.Client)
	ttRepo := timetable.NewRepository(db.Client, cfg.TimetableTable)

	var photos users.PhotoStore
	if cdnClient != nil {
		photos = cdnClient
	}

	userSvc := users.NewService(userRepo, face, photos, cfg.FaceMatchThreshold, cfg.FaceVerifyThreshold, logger)
	attSvc := attendance.NewService(sessionRepo, attRepo, userRepo, qr.DataURL,
		time.Duration(cfg.SessionTTLSeconds)*time.Second, logger)
	ttSvc := timetable.NewService(ttRepo, userRepo, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
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

	handler.New(userSvc, attSvc, ttSvc).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}
