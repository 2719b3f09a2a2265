package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jwalitptl/leukemia-dashboard/internal/devserver"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := devserver.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	server := devserver.New(cfg, log)

	if cfg.SeedEmail != "" && cfg.SeedPassword != "" {
		account, token, err := server.Seed(context.Background(), cfg.SeedEmail, cfg.SeedPassword, cfg.SeedName)
		if err != nil {
			log.Fatal(err, "failed to seed account")
		}
		log.Info("seeded account", "email", account.Email, "token", token)
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	go func() {
		log.Info("devserver listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
