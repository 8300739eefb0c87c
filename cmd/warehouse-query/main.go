package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/config"
	"github.com/cuongbtq/workspace-jobs/shared/logger"
	"github.com/cuongbtq/workspace-jobs/shared/warehouse"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var errReported = errors.New("warehouse query failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:           "warehouse-query",
		Short:         "Run one SQL statement against a SQL warehouse and print the rows",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out)
		},
	}
}

func run(ctx context.Context, out io.Writer) error {
	envErr := godotenv.Load()

	cfg, err := config.FromEnvironment(os.LookupEnv)
	if err != nil {
		logger.NewDefault().Error("Invalid configuration", slog.Any("error", err))
		return errReported
	}

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
	log := appLogger.Logger

	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	if err := cfg.ValidateWarehouse(); err != nil {
		log.Error("Invalid configuration", slog.Any("error", err))
		return errReported
	}

	db, err := warehouse.Open(&warehouse.Config{
		Host:     cfg.Workspace.Host,
		HTTPPath: cfg.Warehouse.HTTPPath,
		Token:    cfg.Workspace.Token,
		Timeout:  cfg.Warehouse.Timeout,
	}, log)
	if err != nil {
		log.Error("Failed to open warehouse connection", slog.Any("error", err))
		return errReported
	}
	defer db.Close()

	log.Info("Connecting to SQL Warehouse",
		slog.String("hostname", warehouse.NormalizeHostname(cfg.Workspace.Host)),
		slog.String("http_path", cfg.Warehouse.HTTPPath),
	)

	rows, err := warehouse.Query(ctx, db, cfg.Warehouse.Statement)
	if err != nil {
		log.Error("Warehouse query failed", slog.Any("error", err))
		return errReported
	}

	printRows(out, rows)

	log.Info("Done", slog.Int("rows", len(rows)))
	return nil
}

// printRows writes one line per row as name=value pairs in column order
func printRows(out io.Writer, rows []warehouse.Row) {
	for _, row := range rows {
		pairs := make([]string, len(row))
		for i, col := range row {
			pairs[i] = fmt.Sprintf("%s=%v", col.Name, col.Value)
		}
		fmt.Fprintln(out, strings.Join(pairs, " "))
	}
}
