package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"judgecore/internal/auth"
	"judgecore/internal/config"
	"judgecore/internal/deployment"
	"judgecore/internal/engine"
	"judgecore/internal/grader"
	"judgecore/internal/httpapi"
	"judgecore/internal/repository"
	"judgecore/internal/sandbox"
	"judgecore/pkg/log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultConfigPath      = "configs/judgecore.yaml"
	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return
	}

	if err := log.Init(log.Config{Level: "info", Format: "json", Service: "judgecore"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = log.Sync()
	}()

	repo, err := repository.NewMySQLRepository(cfg.Database.DSN, repository.PoolConfig{
		MaxOpenConnections: cfg.Database.MaxOpenConns,
		MaxIdleConnections: cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()
	rateLimiter := httpapi.NewRateLimiter(redisClient)

	driver, err := sandbox.NewDockerDriver(cfg.Docker.Host, cfg.Docker.NetworkDisabled)
	if err != nil {
		log.Error(context.Background(), "init docker driver failed", zap.Error(err))
		return
	}

	eng := engine.New(driver)
	validator := deployment.New(cfg.Deployment.Enabled, cfg.Deployment.MinSecurityScore)
	g := grader.New(grader.Config{
		Engine:     eng,
		Validator:  validator,
		Repo:       repo,
		RunTimeout: int(cfg.Grading.RunTimeout.Seconds()),
		MemLimit:   cfg.Grading.MemoryLimit,
	})

	handlers := &httpapi.Handlers{
		Repo:       repo,
		Grader:     g,
		Engine:     eng,
		Validator:  validator,
		Tokens:     auth.NewTokenVerifier(cfg.Auth.JWTSecret, ""),
		Passwords:  auth.NewPasswordHasher(cfg.Auth.BcryptRounds),
		Grading:    cfg.Grading,
		CSRFSecret: cfg.Auth.SecretKey,
	}

	router := httpapi.NewRouter(handlers, rateLimiter, cfg)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(context.Background(), "judgecore http server started", zap.String("addr", cfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		log.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}
