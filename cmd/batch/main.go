package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/faq-assistant/internal/adapters/batch"
	"github.com/kirillkom/faq-assistant/internal/bootstrap"
	"github.com/kirillkom/faq-assistant/internal/config"
	"github.com/kirillkom/faq-assistant/internal/observability/logging"
)

const serviceName = "faq-batch"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		queriesPath string
		reportPath  string
		logFormat   string
	)
	cmd := &cobra.Command{
		Use:           "faq-batch",
		Short:         "Answer every query of a test file and write a report",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if queriesPath == "" {
				queriesPath = cfg.TestQueriesPath
			}
			if reportPath == "" {
				reportPath = cfg.ReportPath
			}
			return run(cmd.Context(), cfg, queriesPath, reportPath, logFormat)
		},
	}
	cmd.Flags().StringVarP(&queriesPath, "queries", "q", "", "test queries JSON file (defaults to TEST_QUERIES_PATH)")
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "report path, .csv or .xlsx (defaults to REPORT_PATH)")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	return cmd
}

func run(ctx context.Context, cfg config.Config, queriesPath, reportPath, logFormat string) error {
	logger := logging.New(os.Stderr, serviceName, cfg.LogLevel, logFormat)
	appLog := logging.Channel(logger, logging.ChannelApp)
	appLog.Info("batch processing job started")
	defer appLog.Info("batch processing job ended")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	appLog.Info("loading test queries", "path", queriesPath)
	f, err := os.Open(queriesPath)
	if err != nil {
		return fmt.Errorf("open test queries: %w", err)
	}
	queries, skipped, err := batch.ParseQueries(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	rows := batch.NewRunner(app.Pipeline, os.Stdout, appLog).Run(ctx, queries, skipped, len(queries)+len(skipped))
	if err := batch.WriteReport(reportPath, rows); err != nil {
		return err
	}
	appLog.Info("report written", "path", reportPath, "rows", len(rows), "skipped", len(skipped))
	return nil
}
