package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/config"
	"github.com/cuongbtq/workspace-jobs/internal/stub/handler"
	"github.com/cuongbtq/workspace-jobs/internal/stub/router"
	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/logger"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "workspace-stub",
		Short:        "Serve an in-memory workspace API for local runs and tests",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(configPath)
		},
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKSPACE_STUB_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/workspace-stub/config.yaml"
	}
	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	return cmd
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadStub(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting workspace stub",
		slog.String("app", cfg.App.Name),
		slog.String("environment", cfg.App.Environment),
		slog.Int("clusters", len(cfg.Clusters)),
	)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	appLogger.Info("Workspace stub is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	case <-quit:
	}

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter seeds the in-memory workspace and builds the Gin router
func initRouter(cfg *config.StubConfig, logger *slog.Logger) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Seed clusters from config
	clusters := make([]workspace.ClusterInfo, len(cfg.Clusters))
	for i, c := range cfg.Clusters {
		clusters[i] = workspace.ClusterInfo{ClusterID: c.ID, ClusterName: c.Name, State: c.State}
	}

	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Storage: storage.NewStorage(storage.Config{
			Clusters:     clusters,
			PendingPolls: cfg.Runs.PendingPolls,
			RunningPolls: cfg.Runs.RunningPolls,
			ResultState:  cfg.Runs.ResultState,
		}),
		Token:     cfg.Token,
		PublicURL: publicURL,
	})
}
