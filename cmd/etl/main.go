// Command etl runs the trip-data batch pipeline once: it discovers the
// source CSV files, reconciles their schemas, normalizes and concatenates
// them, derives the trip fields block-wise, filters duration outliers, and
// optionally persists the combined table and per-dimension summaries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ridereport/trip-data-etl/internal/adapter/csvdir"
	"github.com/ridereport/trip-data-etl/internal/adapter/monitor"
	"github.com/ridereport/trip-data-etl/internal/config"
	"github.com/ridereport/trip-data-etl/internal/domain"
	"github.com/ridereport/trip-data-etl/internal/observability"
	"github.com/ridereport/trip-data-etl/internal/pipeline"
	"github.com/ridereport/trip-data-etl/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	reader := csvdir.NewReader(cfg.InputDir, cfg.FilePattern, logger)
	p := pipeline.New(reader, logger, metrics, pipeline.Options{
		StartColumn:        cfg.StartColumn,
		EndColumn:          cfg.EndColumn,
		IDColumns:          cfg.IDColumns,
		BlockSize:          cfg.BlockSize,
		Workers:            cfg.Workers,
		MaxDurationMinutes: cfg.MaxDurationMinutes,
	})

	if cfg.MonitorAddr != "" {
		srv := monitor.NewServer(cfg.MonitorAddr, func() monitor.Status {
			status, running := p.Status()
			return monitor.Status{
				Running:           running,
				StartedAt:         status.StartedAt,
				FinishedAt:        status.FinishedAt,
				Files:             status.Files,
				RowsRead:          status.RowsRead,
				RowsOut:           status.RowsOut,
				OutliersRemoved:   status.OutliersRemoved,
				TimestampFailures: status.TimestampFailures,
			}
		}, logger)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitor server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("monitor server shutdown", "error", err)
			}
		}()
	}

	combined, _, err := p.Run(ctx)
	if err != nil {
		return err
	}

	writer := csvdir.NewWriter(logger)
	if cfg.CombinedOutput != "" {
		if err := writer.WriteTable(cfg.CombinedOutput, combined); err != nil {
			return err
		}
	}

	if cfg.SummaryDir == "" {
		return nil
	}

	var calendar *domain.WeatherCalendar
	if cfg.WeatherPath != "" {
		data, err := os.ReadFile(cfg.WeatherPath)
		if err != nil {
			return fmt.Errorf("read weather document: %w", err)
		}
		calendar, err = domain.LoadWeather(data)
		if err != nil {
			return err
		}
	}

	summarizer := report.NewSummarizer(calendar, cfg.StartColumn, nil, logger)
	summaries, err := summarizer.All(combined, cfg.SummaryDimensions)
	if err != nil {
		return err
	}
	for dim, table := range summaries {
		path := filepath.Join(cfg.SummaryDir, "by_"+dim+".csv")
		if err := writer.WriteTable(path, table); err != nil {
			return err
		}
	}
	return nil
}
