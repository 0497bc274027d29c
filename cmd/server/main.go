package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"swiftresponse/internal/broadcast"
	"swiftresponse/internal/config"
	"swiftresponse/internal/countdown"
	handlers "swiftresponse/internal/handlers/shared"
	"swiftresponse/internal/middleware"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/repositories/memory"
	"swiftresponse/internal/repositories/mongodb"
	"swiftresponse/internal/repositories/redisstore"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/database"
	"swiftresponse/pkg/functions"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
	"swiftresponse/pkg/websocket"
	"swiftresponse/routes"
)

type repositories struct {
	emergencies interfaces.EmergencyRepository
	users       interfaces.UserRepository
	medical     interfaces.MedicalProfileRepository
	hospitals   interfaces.HospitalRepository
	drivers     interfaces.DriverRepository
	sessions    interfaces.DriverSessionStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     cfg.App.LogFormat,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		Caller:     cfg.App.Debug,
		AppName:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		URL:             cfg.Redis.URL,
		Host:            cfg.Redis.Host,
		Port:            cfg.Redis.Port,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		ConnMaxIdleTime: cfg.Redis.ConnMaxIdleTime,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		TLS:             cfg.Redis.TLS,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Store
	var (
		repos *repositories
		mongo *database.MongoDB
	)
	switch cfg.App.StoreBackend {
	case config.StoreMongo:
		mongo, err = database.NewMongoDB(ctx, &database.DatabaseConfig{
			URI:                    cfg.Database.URI,
			Database:               cfg.Database.Database,
			AppName:                cfg.App.Name,
			Username:               cfg.Database.Username,
			Password:               cfg.Database.Password,
			AuthSource:             cfg.Database.AuthSource,
			MaxPoolSize:            cfg.Database.MaxPoolSize,
			MinPoolSize:            cfg.Database.MinPoolSize,
			ConnectTimeout:         cfg.Database.ConnectTimeout,
			SocketTimeout:          cfg.Database.SocketTimeout,
			ServerSelectionTimeout: cfg.Database.ServerSelectionTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer mongo.Close()

		if err := database.NewMigrator(mongo.Database, appLogger).Up(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to run migrations")
		}
		repos = &repositories{
			emergencies: mongodb.NewEmergencyRepository(mongo.Database, redisCache),
			users:       mongodb.NewUserRepository(mongo.Database, redisCache),
			medical:     mongodb.NewMedicalProfileRepository(mongo.Database),
			hospitals:   mongodb.NewHospitalRepository(mongo.Database),
			drivers:     mongodb.NewDriverRepository(mongo.Database),
			sessions:    redisstore.NewDriverSessionStore(redisCache, cfg.Dispatch.DriverSessionTTL),
		}
	default:
		appLogger.Warn("Using in-memory store, records are lost on restart")
		repos = &repositories{
			emergencies: memory.NewEmergencyRepository(),
			users:       memory.NewUserRepository(),
			medical:     memory.NewMedicalProfileRepository(),
			hospitals:   memory.NewHospitalRepository(models.CuratedHospitals()),
			drivers:     memory.NewDriverRepository(),
			sessions:    memory.NewDriverSessionStore(cfg.Dispatch.DriverSessionTTL),
		}
	}

	feed, closeFeed, err := newFeed(cfg.Realtime, redisCache, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create change feed")
	}
	defer closeFeed()

	// Providers
	var fn *functions.Client
	if cfg.Functions.BaseURL != "" {
		fn = functions.NewClient(functions.Config{
			BaseURL:    cfg.Functions.BaseURL,
			APIKey:     cfg.Functions.APIKey,
			Timeout:    cfg.Functions.Timeout,
			RetryCount: cfg.Functions.RetryCount,
		})
	}
	smsProvider, err := newSMSProvider(ctx, cfg.SMS, fn, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create SMS provider")
	}
	pushProvider, err := newPushProvider(ctx, cfg.Push, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create push provider")
	}
	router, geocoder, err := newMaps(cfg.Maps)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create maps provider")
	}

	// Realtime plumbing
	hub := websocket.NewHub(appLogger)
	notifier := websocket.NewNotifier(hub)
	gate := countdown.NewGate(countdown.WithTick(cfg.Dispatch.CountdownTick))
	validator := broadcast.Validator{
		Region: utils.Bounds{
			Southwest: utils.Point{Lat: cfg.Dispatch.RegionSouth, Lng: cfg.Dispatch.RegionWest},
			Northeast: utils.Point{Lat: cfg.Dispatch.RegionNorth, Lng: cfg.Dispatch.RegionEast},
		},
		MaxAccuracy: cfg.Dispatch.MaxAccuracyMeters,
	}
	registry := broadcast.NewRegistry(ctx, map[broadcast.Kind]time.Duration{
		broadcast.KindDriver:  cfg.Dispatch.BroadcastDriverWindow,
		broadcast.KindPatient: cfg.Dispatch.BroadcastPatientWindow,
	}, validator, appLogger)

	// Services
	dispatchService := services.NewDispatchService(repos.emergencies, feed, appLogger)
	realtimeService := services.NewRealtimeService(ctx, feed, dispatchService, notifier, services.RealtimeOptions{
		RecencyWindow:     cfg.Dispatch.RecencyWindow,
		InitialLoadWindow: cfg.Dispatch.InitialLoadWindow,
		InitialLoadLimit:  cfg.Dispatch.InitialLoadLimit,
	}, appLogger)
	notificationService := services.NewNotificationService(repos.hospitals, repos.users, notifier, pushProvider, smsProvider, appLogger)
	locationService := services.NewLocationService(
		registry, validator, dispatchService, repos.drivers, repos.sessions, repos.users,
		geocoder, cache.NewLocalCache(time.Hour, 10*time.Minute), cfg.Dispatch.GeocodeTimeout, appLogger,
	)
	advisor := services.NewHospitalAdvisor(
		dispatchService, repos.hospitals, repos.sessions, router,
		cache.NewLocalCache(5*time.Minute, 10*time.Minute),
		services.AdvisorOptions{
			RoutingTimeout:  cfg.Dispatch.RoutingTimeout,
			AverageSpeedKMH: cfg.Dispatch.AverageSpeedKMH,
		}, appLogger,
	)
	sosService := services.NewSOSService(
		ctx, dispatchService, repos.users, repos.medical, notificationService, realtimeService,
		notifier, gate, cfg.Dispatch.SOSCountdownSeconds, appLogger,
	)
	sessionService := services.NewDriverSessionService(
		ctx, repos.sessions, dispatchService, realtimeService, notifier, gate,
		cfg.Dispatch.AlertCountdownSeconds, appLogger,
	)
	profileService := services.NewProfileService(repos.users, repos.medical, repos.hospitals, appLogger)
	otpService := services.NewOTPService(redisCache, repos.users, notificationService, fn, services.OTPOptions{
		Expiry:      cfg.Security.OTPExpiry,
		MaxAttempts: cfg.Security.OTPMaxAttempts,
		JWTSecret:   cfg.Security.JWTSecret,
		AccessTTL:   cfg.Security.JWTAccessTokenTTL,
		RefreshTTL:  cfg.Security.JWTRefreshTokenTTL,
		Remote:      cfg.Functions.RemoteOTP && fn != nil,
	}, appLogger)
	monitor := services.NewMonitorService(repos.emergencies, cfg.Dispatch.MonitorSchedule, cfg.Dispatch.StaleAfter, appLogger)

	dispatchService.OnTransition(notificationService.HandleTransition)
	dispatchService.OnTransition(locationService.HandleTransition)
	dispatchService.OnTransition(sessionService.HandleTransition)

	// Handlers
	handlers.NewRealtimeHandler(hub, dispatchService, realtimeService, sessionService, locationService, appLogger)
	wsHandler := websocket.NewHandler(hub, websocket.Options{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout:  cfg.WebSocket.HandshakeTimeout,
		PingInterval:      cfg.WebSocket.PingInterval,
		PongTimeout:       cfg.WebSocket.PongTimeout,
		MaxConnections:    cfg.WebSocket.MaxConnections,
		EnableCompression: cfg.WebSocket.EnableCompression,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
	})

	limitStore, err := sredis.NewStoreWithOptions(redisCache.Client(), limiter.StoreOptions{
		Prefix: "swiftresponse:limiter",
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create rate limit store")
	}
	sosLimiter, err := middleware.NewRateLimiter("sos", cfg.Security.SOSRateLimit, limitStore, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid SOS rate limit")
	}
	otpLimiter, err := middleware.NewRateLimiter("otp", cfg.Security.OTPRateLimit, limitStore, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid OTP rate limit")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.LoggingMiddleware(appLogger, "/health", "/metrics"))
	engine.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	engine.Use(metrics.Middleware())
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	routes.Setup(engine, routes.Handlers{
		Auth:      handlers.NewAuthHandler(otpService, appLogger),
		Profile:   handlers.NewProfileHandler(profileService, appLogger),
		Patient:   handlers.NewPatientHandler(sosService, locationService, realtimeService, dispatchService, appLogger),
		Emergency: handlers.NewEmergencyHandler(dispatchService, advisor, appLogger),
		Driver:    handlers.NewDriverHandler(sessionService, locationService, realtimeService, appLogger),
	}, routes.Limiters{SOS: sosLimiter, OTP: otpLimiter}, cfg.Security.JWTSecret)

	engine.GET(cfg.WebSocket.Path, middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)
	engine.GET("/metrics", metrics.Handler())

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"redis": "ok", "store": cfg.App.StoreBackend}
		healthy := true
		if err := redisCache.Ping(checkCtx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
		if mongo != nil {
			checks["mongodb"] = "ok"
			if err := mongo.Ping(checkCtx); err != nil {
				checks["mongodb"] = err.Error()
				healthy = false
			}
		}

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
			"clients": hub.ClientCount(),
			"checks":  checks,
		})
	})

	go hub.Run(ctx)
	if err := monitor.Start(); err != nil {
		appLogger.WithError(err).Fatal("Failed to start emergency monitor")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(map[string]interface{}{
			"addr":        server.Addr,
			"environment": cfg.App.Environment,
			"store":       cfg.App.StoreBackend,
			"realtime":    cfg.Realtime.Backend,
		}).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	monitor.Stop()
	locationService.Shutdown()
}
