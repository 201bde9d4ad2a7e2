package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AngelCh415/amazon-ppc-etl/internal/config"
	"github.com/AngelCh415/amazon-ppc-etl/internal/httpx"
	"github.com/AngelCh415/amazon-ppc-etl/internal/ingest"
	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/metrics"
	"github.com/AngelCh415/amazon-ppc-etl/internal/observability"
	"github.com/AngelCh415/amazon-ppc-etl/internal/relay"
	"github.com/AngelCh415/amazon-ppc-etl/internal/store"
	"github.com/AngelCh415/amazon-ppc-etl/internal/utils"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var costs ledger.Ledger = ledger.NewMemoryLedger()
	if cfg.LedgerPath != "" {
		sl, err := ledger.OpenSQLite(cfg.LedgerPath)
		if err != nil {
			logger.Error("open ledger", slog.String("path", cfg.LedgerPath), slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer sl.Close()
		costs = sl
	}

	m := observability.NewMetrics("")
	rc := relay.NewHTTPClient(cfg.HTTPTimeout, utils.NewBackoff(200*time.Millisecond, 3), logger)
	rl := relay.New(rc, cfg.RelayURL, cfg.RelaySecret, logger, m.RelayObserver)
	if !rl.Enabled() {
		logger.Info("relay disabled")
	}

	st := store.NewMemoryStore()
	in := ingest.NewService(st, costs, rl, logger, m, 4*cfg.HTTPTimeout)
	mSvc := metrics.NewService(st, costs)

	r := httpx.NewRouter(httpx.Deps{
		Log:            logger,
		Ingest:         in,
		Metrics:        mSvc,
		Ledger:         costs,
		Prometheus:     m.Handler(),
		AdminEmails:    cfg.AdminEmails,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port), slog.Bool("sqlite_ledger", cfg.LedgerPath != ""))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
