package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/api"
	"github.com/artifactlab/review-scoring/internal/api/handlers"
	"github.com/artifactlab/review-scoring/internal/api/middleware"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/scheduler"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reconcile scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	if !skipMigrations {
		if err := repository.RunMigrations(a.cfg.Database.Postgres.URL(), log); err != nil {
			return err
		}
	}

	svc, err := a.buildServices(ctx, true)
	if err != nil {
		return err
	}
	defer svc.close()

	sched := scheduler.NewService(a.cfg, svc.projects, svc.engine, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	handler := handlers.NewHandler(svc.reviews, svc.evaluations, svc.engine, svc.stats, svc.checker, a.cfg.Server.IsDevelopment(), log.Component("api"))
	router, err := api.NewRouter(handler, api.RouterOptions{
		Server:  a.cfg.Server,
		Metrics: a.cfg.Metrics.Prometheus,
		Auth:    middleware.NewAuth(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Reviews.SystemReviewerID),
		Checks: map[string]api.HealthCheck{
			"database": func(context.Context) error { return a.db.Health() },
			"redis":    svc.redis.Health,
		},
	}, log.Component("http"))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", a.cfg.Server.Port).
			Str("environment", a.cfg.Server.Environment).
			Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
