// Command apiserver runs the assistant backend: code execution against
// optionally provisioned datasets, plus CSV schema inference and caching
// over the conversation blob store.
//
// Configuration is read from the environment once at startup; see
// internal/config. The storage account is optional: without it the execute
// endpoint still works and the storage-backed endpoints answer each
// request with a configuration error.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niisara/poc-azure-assistant/internal/api"
	"github.com/niisara/poc-azure-assistant/internal/blobstore"
	"github.com/niisara/poc-azure-assistant/internal/blobstore/azure"
	"github.com/niisara/poc-azure-assistant/internal/config"
	"github.com/niisara/poc-azure-assistant/internal/executor"
	"github.com/niisara/poc-azure-assistant/internal/journal"
	"github.com/niisara/poc-azure-assistant/internal/logging"
	"github.com/niisara/poc-azure-assistant/internal/metrics"
	"github.com/niisara/poc-azure-assistant/internal/metrics/datadog"
	"github.com/niisara/poc-azure-assistant/internal/schema"

	// register journal backends; config selects which one is used.
	_ "github.com/niisara/poc-azure-assistant/internal/journal/mssql"
	_ "github.com/niisara/poc-azure-assistant/internal/journal/postgres"
	_ "github.com/niisara/poc-azure-assistant/internal/journal/sqlite"
)

func main() {
	cfg := config.Load()

	log, closeLog := logging.Setup(cfg.SeqURL, cfg.Debug)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m metrics.Backend = metrics.Nop{}
	if cfg.DatadogEnabled {
		dd, err := datadog.NewBackend(ctx, datadog.Options{
			ServiceName: "assistant",
			Tags:        datadog.ParseTagsCSV(cfg.DatadogTags),
		})
		if err != nil {
			log.Error("datadog metrics init failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = dd.Close() }()
		m = dd
	}

	var gw blobstore.Gateway
	if cfg.Storage.Configured() {
		azGW, err := azure.New(cfg.Storage.AccountName, cfg.Storage.AccountKey, cfg.Storage.Container)
		if err != nil {
			log.Error("blob storage init failed", "error", err)
			os.Exit(1)
		}
		gw = azGW
		checkStorage(ctx, gw, cfg, log)
	} else {
		log.Warn("no storage account configured; storage endpoints will fail per request")
	}

	jr, err := journal.New(ctx, journal.Config{Kind: cfg.Journal.Backend, DSN: cfg.Journal.DSN})
	if err != nil {
		log.Error("journal init failed", "backend", cfg.Journal.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = jr.Close() }()

	runner := executor.NewPythonRunner(cfg.PythonBin, log)

	var analyzer *schema.Analyzer
	if gw != nil {
		analyzer = schema.NewAnalyzer(gw, jr, m, log)
	}

	handlers := api.NewHandlers(cfg, gw, runner, analyzer, m, log)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api server listening", "addr", srv.Addr, "debug", cfg.Debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}
}

// checkStorage probes connectivity at startup. Failures are logged, not
// fatal: credentials may become valid later and every endpoint reports
// storage failures per request anyway.
func checkStorage(ctx context.Context, gw blobstore.Gateway, cfg config.Config, log *slog.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	containers, err := gw.ListContainers(probeCtx)
	if err != nil {
		log.Warn("storage connectivity check failed", "account", cfg.Storage.AccountName, "error", err)
		return
	}
	for _, c := range containers {
		if c.Name == cfg.Storage.Container {
			log.Info("connected to blob storage", "account", cfg.Storage.AccountName, "container", cfg.Storage.Container)
			return
		}
	}
	log.Warn("configured container not found", "container", cfg.Storage.Container, "containers_found", len(containers))
}
