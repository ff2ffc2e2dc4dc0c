// Command surveyd serves the sentence-pair similarity survey.
//
// Configuration is environment driven:
//
//	SURVEYCORE_LISTEN_ADDR        HTTP listen address (default :8080)
//	SURVEYCORE_CATALOG_PATH       sentence-pair CSV (default sentence_pairs_attitude.csv)
//	SURVEYCORE_EXTENDED_INTAKE    true enables the extended intake form
//	SURVEYCORE_TIME_BUDGET_HOURS  advisory session budget in hours (default 3)
//	SURVEYCORE_STORAGE_DRIVER     csv|memory|sqlite|postgres (default csv)
//	SURVEYCORE_BLOB_DRIVER        fs|s3|memory (default fs)
//
// Storage and blob drivers read further variables documented in their
// packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"surveycore/internal/blob"
	"surveycore/internal/catalog"
	"surveycore/internal/core"
	"surveycore/internal/export"
	"surveycore/internal/httpapi"
)

// slogAudit forwards service audit entries to the structured log.
type slogAudit struct {
	logger *slog.Logger
}

func (a slogAudit) Record(_ context.Context, entry core.AuditEntry) {
	attrs := []any{
		"operation", entry.Operation,
		"status", string(entry.Status),
		"duration_ms", float64(entry.Duration) / float64(time.Millisecond),
	}
	if entry.ParticipantID != "" {
		attrs = append(attrs, "participant", entry.ParticipantID)
	}
	if entry.EntityID != "" {
		attrs = append(attrs, "entity", entry.EntityID)
	}
	if entry.Error != "" {
		attrs = append(attrs, "error", entry.Error)
		a.logger.Warn("audit", attrs...)
		return
	}
	a.logger.Info("audit", attrs...)
}

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	logger := core.SlogLogger{L: slogger}

	if err := run(context.Background(), slogger, logger); err != nil {
		slogger.Error("surveyd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, slogger *slog.Logger, logger core.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalogPath := os.Getenv("SURVEYCORE_CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = catalog.DefaultPath
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}
	slogger.Info("catalog loaded", "path", catalogPath, "pairs", cat.Len())

	extended := strings.EqualFold(os.Getenv("SURVEYCORE_EXTENDED_INTAKE"), "true")

	store, err := core.OpenResponseStore(ctx, extended)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}

	audit := slogAudit{logger: slogger}
	metrics, err := core.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return err
	}

	worker := export.NewWorker(store, blobs, extended, audit, logger)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	}()

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithAuditRecorder(audit),
		core.WithMetricsRecorder(metrics),
		core.WithExtendedIntake(extended),
		core.WithExportQueue(worker),
	}
	if raw := os.Getenv("SURVEYCORE_TIME_BUDGET_HOURS"); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithTimeBudget(time.Duration(hours*float64(time.Hour))))
	}
	svc := core.NewService(cat, store, opts...)

	addr := os.Getenv("SURVEYCORE_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := httpapi.NewServer(addr, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
