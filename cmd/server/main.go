package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	apphttp "realworld-settings/internal/http"
	"realworld-settings/internal/config"
	"realworld-settings/internal/profileapi"
	"realworld-settings/internal/repository"
	"realworld-settings/internal/repository/memory"
	"realworld-settings/internal/repository/redisstore"
	"realworld-settings/internal/repository/sqlite"
	"realworld-settings/internal/service"
	"realworld-settings/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Server.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.Session.Backend == "sqlite" || cfg.DevAPI.Enabled {
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatalf("open database: %v", err)
		}
		defer db.Close()
	}

	sessionRepo, closeSessions, err := buildSessionRepository(cfg, db)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeSessions()
	if err := sessionRepo.Init(ctx); err != nil {
		logger.Fatalf("init session repository: %v", err)
	}
	sessions := session.NewManager(sessionRepo, time.Duration(cfg.Session.TTLMinutes)*time.Minute, logger)
	if cfg.Session.PurgeIntervalSeconds > 0 {
		go sessions.RunJanitor(ctx, time.Duration(cfg.Session.PurgeIntervalSeconds)*time.Second)
	}

	client := profileapi.NewClient(profileapi.Config{
		BaseURL:    cfg.API.BaseURL,
		AuthScheme: cfg.API.AuthScheme,
	}, &http.Client{Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), apphttp.RequestLogger(logger))

	apphttp.RegisterOps(router, promhttp.Handler())
	apphttp.NewWebHandler(client, sessions, apphttp.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, cfg.UI.LoginPath, logger).RegisterRoutes(router)

	if cfg.DevAPI.Enabled {
		userRepo := sqlite.NewUserRepository(db)
		if err := userRepo.Init(ctx); err != nil {
			logger.Fatalf("init user repository: %v", err)
		}
		tokens := service.NewTokenService(cfg.DevAPI.JWTSecret, time.Duration(cfg.DevAPI.TokenTTLMinutes)*time.Minute, cfg.DevAPI.Issuer)
		apphttp.NewAPIHandler(service.NewUserService(userRepo), tokens, logger).RegisterRoutes(router)
		logger.Info("development user api mounted at /api")
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s (profile api %s)", cfg.Server.Addr, cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildSessionRepository(cfg config.Config, db *sql.DB) (repository.SessionRepository, func(), error) {
	switch strings.ToLower(cfg.Session.Backend) {
	case "memory":
		return memory.NewSessionRepository(), func() {}, nil
	case "sqlite":
		return sqlite.NewSessionRepository(db), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.NewSessionRepository(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
