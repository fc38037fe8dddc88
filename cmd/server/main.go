package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-registry/internal/config"
	"student-registry/internal/database"
	"student-registry/internal/handler"
	"student-registry/internal/logging"
	"student-registry/internal/metrics"
	"student-registry/internal/repository"
	"student-registry/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration and logger
	cfg := config.LoadConfig()
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "db_driver", cfg.Database.Driver, "port", cfg.Server.Port)

	// 2. Initialize database connection
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// 3. Initialize repositories
	userRepo := repository.NewUserRepo(db)
	studentRepo := repository.NewStudentRepo(db)
	chatRepo := repository.NewChatRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	// 4. Initialize services
	m := metrics.New("student_registry")
	creds, err := service.NewCredentialService(userRepo, cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, creds, auditService, m)
	studentService := service.NewStudentService(studentRepo, auditService, m)
	chatService := service.NewChatService(chatRepo, m)

	// 5. Bootstrap the owner account and optional seed data
	ctx := context.Background()
	generated, err := userService.Bootstrap(ctx, cfg.Owner.Username, cfg.Owner.Password)
	if err != nil {
		return err
	}
	if generated != "" {
		logger.Warn("owner account created with generated password; change it by setting OWNER_PASSWORD on a fresh database",
			"username", service.NormalizeUsername(cfg.Owner.Username),
			"password", generated,
		)
	}
	if cfg.SeedFile != "" {
		if err := service.NewSeeder(userService, studentRepo).Load(ctx, cfg.SeedFile); err != nil {
			return err
		}
	}

	// 6. Setup Gin
	gin.SetMode(cfg.Server.GinMode)
	if err := handler.RegisterValidators(); err != nil {
		return err
	}
	r := handler.NewRouter(handler.Dependencies{
		DB:       db,
		Logger:   logger,
		Metrics:  m,
		CORS:     cfg.CORS,
		Creds:    creds,
		Users:    userService,
		Students: studentService,
		Chat:     chatService,
		Audit:    auditService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Serve until interrupted, then shut down gracefully
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
