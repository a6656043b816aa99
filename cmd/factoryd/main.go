// Command factoryd serves the factory dispatch endpoint over HTTP: the
// authoritative side of remote factory calls, with pluggable entity storage
// and an optional blob-backed audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"remotefactory/internal/blob"
	"remotefactory/internal/dispatch"
	"remotefactory/internal/integration"
	"remotefactory/internal/persistence"
	"remotefactory/pkg/factory"
	"remotefactory/pkg/ordinal"
)

type config struct {
	Addr        string `env:"FACTORYD_ADDR"         envDefault:":8080"`
	Store       string `env:"FACTORYD_STORE"        envDefault:"memory"`
	SQLitePath  string `env:"FACTORYD_SQLITE_PATH"`
	PostgresDSN string `env:"FACTORYD_POSTGRES_DSN"`
	Audit       bool   `env:"FACTORYD_AUDIT"        envDefault:"false"`
	Metrics     bool   `env:"FACTORYD_METRICS"      envDefault:"true"`
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("factoryd: %v", err)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Printf("entity store: %s", cfg.Store)

	codecs := ordinal.NewRegistry()
	integration.RegisterOrderConverter(codecs)

	dispatchCfg := dispatch.Config{
		Codecs:   codecs,
		Resolver: factory.ResolverMap{integration.OrderStoreService: store},
	}

	if cfg.Metrics {
		recorder, err := dispatch.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		dispatchCfg.Metrics = recorder
	}

	if cfg.Audit {
		auditStore, err := blob.Open(ctx)
		if err != nil {
			return err
		}
		dispatchCfg.Audit = dispatch.NewBlobAuditLog(auditStore)
		log.Printf("audit trail: %s blob store", auditStore.Driver())
	}

	dispatcher := dispatch.New(dispatchCfg)
	dispatcher.RegisterRules(integration.OrderTypeName, integration.DefaultOrderRules())

	registry := dispatch.NewHandlerRegistry()
	if err := integration.RegisterOrderHandlers(registry); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(dispatch.DispatchPath, dispatch.NewHandler(dispatcher, registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config) (persistence.EntityStore, error) {
	switch cfg.Store {
	case persistence.StoreMemory:
		return persistence.NewMemory(), nil
	case persistence.StoreSQLite:
		return persistence.NewSQLite(cfg.SQLitePath)
	case persistence.StorePostgres:
		return persistence.NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown entity store backend %s (want memory, sqlite or postgres)", cfg.Store)
	}
}
