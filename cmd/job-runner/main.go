package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/config"
	"github.com/cuongbtq/workspace-jobs/internal/remote"
	"github.com/cuongbtq/workspace-jobs/internal/runner"
	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/cuongbtq/workspace-jobs/internal/runner/storage"
	"github.com/cuongbtq/workspace-jobs/shared/database"
	"github.com/cuongbtq/workspace-jobs/shared/logger"
	"github.com/cuongbtq/workspace-jobs/shared/rabbitmq"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// errReported marks a failure that has already been logged
var errReported = errors.New("job runner failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "job-runner",
		Short: "Upload a payload, upsert its job by name, run it and wait for the result",
		Long: "Configuration comes from the environment (and an optional .env file or the YAML file " +
			"named by JOB_RUNNER_CONFIG_PATH). Exits 0 when the run succeeds and 1 otherwise.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.FromEnvironment(os.LookupEnv)
	if err != nil {
		reportFailure(logger.NewDefault().Logger, "Invalid configuration", err)
		return errReported
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	log := appLogger.Logger

	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	if err := cfg.ValidateRunner(); err != nil {
		reportFailure(log, "Invalid configuration", err)
		return errReported
	}

	log.Info("Starting job runner",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("job_name", cfg.Job.Name),
	)

	client, err := workspace.NewClient(&workspace.Config{
		Host:    cfg.Workspace.Host,
		Token:   cfg.Workspace.Token,
		Timeout: cfg.Workspace.Timeout,
	}, log)
	if err != nil {
		reportFailure(log, "Invalid configuration", domain.NewConfigurationError("workspace", err.Error()))
		return errReported
	}

	runnerCfg := &runner.Config{
		Logger:    log,
		Artifacts: remote.NewArtifacts(client, log),
		Jobs:      remote.NewJobs(client, cfg.Job.ListPageSize),
		Runs:      remote.NewRuns(client),
		Clusters:  remote.NewClusters(client),
	}

	// History and events are best effort; an unreachable sink does not stop the run
	if cfg.History.Enabled {
		dbClient, history, err := initHistory(ctx, &cfg.History, log)
		if err != nil {
			log.Warn("Run history disabled", slog.Any("error", err))
		} else {
			defer dbClient.Close()
			runnerCfg.History = history
		}
	}

	if cfg.Events.Enabled {
		rabbitClient, err := initRabbitMQ(ctx, &cfg.Events, log)
		if err != nil {
			log.Warn("Run events disabled", slog.Any("error", err))
		} else {
			defer rabbitClient.Close()
			runnerCfg.Events = runner.NewJSONEventPublisher(rabbitClient)
		}
	}

	spec := runner.Spec{
		JobName:           cfg.Job.Name,
		PayloadPath:       cfg.Job.PayloadPath,
		WorkspacePath:     cfg.Job.WorkspacePath,
		TaskKey:           cfg.Job.TaskKey,
		ClusterID:         cfg.Cluster.ID,
		ClusterName:       cfg.Cluster.Name,
		Parameters:        cfg.Job.Parameters,
		MaxConcurrentRuns: cfg.Job.MaxConcurrentRuns,
		TimeoutSeconds:    cfg.Job.TimeoutSeconds,
		Tags:              cfg.Job.Tags,
		PollInterval:      cfg.Job.PollInterval,
		RunTimeout:        cfg.Job.RunTimeout,
	}

	if _, err := runner.NewRunner(runnerCfg).Run(ctx, spec); err != nil {
		reportFailure(log, "Job run failed", err)
		return errReported
	}

	return nil
}

// reportFailure logs err with whatever detail its type carries
func reportFailure(log *slog.Logger, msg string, err error) {
	attrs := []any{slog.Any("error", err)}

	var apiErr *workspace.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs,
			slog.Int("status", apiErr.StatusCode),
			slog.String("error_code", apiErr.ErrorCode),
			slog.String("body", apiErr.Body),
		)
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Field != "" {
		attrs = append(attrs, slog.String("field", cfgErr.Field))
	}

	var timeoutErr *domain.RunTimeoutError
	if errors.As(err, &timeoutErr) {
		attrs = append(attrs, slog.Int64("run_id", timeoutErr.Handle.RunID))
	}

	log.Error(msg, attrs...)
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initHistory connects the run history database and migrates it
func initHistory(ctx context.Context, cfg *config.HistoryConfig, log *slog.Logger) (*database.Client, *storage.Storage, error) {
	dbClient, err := database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	history := storage.NewStorage(dbClient.GetDB(), log)
	if err := history.Migrate(ctx); err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	return dbClient, history, nil
}

// initRabbitMQ initializes the run event publisher
func initRabbitMQ(ctx context.Context, cfg *config.EventsConfig, log *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(ctx, &rabbitmq.Config{
		URL:                cfg.URL,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, log)
}
