package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"marina/internal/access"
	"marina/internal/audit"
	cargohandler "marina/internal/cargo/handler"
	cargometrics "marina/internal/cargo/metrics"
	cargoservice "marina/internal/cargo/service"
	"marina/internal/entity"
	"marina/internal/identity"
	"marina/internal/listing"
	"marina/internal/platform/config"
	"marina/internal/platform/httpserver"
	"marina/internal/platform/logger"
	"marina/internal/platform/metrics"
	"marina/internal/platform/postgres"
	platformredis "marina/internal/platform/redis"
	"marina/internal/platform/tracing"
	httptransport "marina/internal/transport/http"
	userhandler "marina/internal/user/handler"
	userservice "marina/internal/user/service"
	vesselhandler "marina/internal/vessel/handler"
	vesselmetrics "marina/internal/vessel/metrics"
	vesselservice "marina/internal/vessel/service"
	"marina/pkg/platform/httputil"
)

const (
	shutdownGrace  = 10 * time.Second
	auditQueueSize = 1024
	tokenIssuer    = "marina"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, sync, err := logger.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Environment, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := metrics.New(reg)

	backend, err := openStore(ctx, cfg, platformMetrics)
	if err != nil {
		return err
	}
	defer backend.close()
	store := backend.store

	g, gctx := errgroup.WithContext(ctx)

	sink, closeSink, err := openAuditSink(gctx, g, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(sink)

	verifier, exchanger, loginVerifier := identityStack(cfg)
	gate := access.NewGate(verifier, log)
	lister := listing.New(store)
	links := httputil.NewLinks(cfg.BaseURL)

	vessels := vesselservice.New(store, lister,
		vesselservice.WithLogger(log),
		vesselservice.WithAuditPublisher(publisher),
		vesselservice.WithMetrics(vesselmetrics.New(reg)),
	)
	cargo := cargoservice.New(store, lister,
		cargoservice.WithLogger(log),
		cargoservice.WithAuditPublisher(publisher),
		cargoservice.WithMetrics(cargometrics.New(reg)),
	)
	users := userservice.New(store, lister,
		userservice.WithLogger(log),
		userservice.WithAuditPublisher(publisher),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Timeout:  cfg.Timeout,
		Metrics:  platformMetrics,
		Gatherer: reg,
		Ready:    backend.ready,
		Handlers: []httptransport.Registrar{
			identity.NewHandler(exchanger, loginVerifier, users, log),
			vesselhandler.New(vessels, gate, links, log),
			cargohandler.New(cargo, gate, links, log),
			userhandler.New(users, links, log),
		},
	})

	log.Info("starting marina",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"store_backend", cfg.Store.Backend,
		"identity_mode", cfg.Identity.Mode,
	)
	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, shutdownGrace, log)
	})
	return g.Wait()
}

// storeBackend is the opened entity store with its readiness check and
// release func.
type storeBackend struct {
	store entity.Store
	ready func(context.Context) error
	close func()
}

// openStore builds the configured entity store wrapped with latency metrics.
func openStore(ctx context.Context, cfg config.Server, m *metrics.Metrics) (storeBackend, error) {
	b := storeBackend{close: func() {}}
	switch cfg.Store.Backend {
	case config.BackendDatastore:
		ds, err := entity.OpenDatastore(ctx, cfg.Store.DatastoreProjectID)
		if err != nil {
			return b, err
		}
		b.store, b.close = ds, func() { _ = ds.Close() }
	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return b, err
		}
		b.store, b.ready, b.close = entity.NewPostgres(pool), pool.Ping, pool.Close
	case config.BackendRedis:
		client, err := platformredis.Open(ctx, cfg.Redis)
		if err != nil {
			return b, err
		}
		b.store, b.close = entity.NewRedis(client), func() { _ = client.Close() }
		b.ready = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	case config.BackendMemory:
		b.store = entity.NewMemory()
	default:
		return b, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	b.store = entity.Instrument(b.store, cfg.Store.Backend, m)
	return b, nil
}

// openAuditSink returns the log sink, or a Kafka sink fed through a bounded
// queue whose worker runs in g.
func openAuditSink(ctx context.Context, g *errgroup.Group, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return audit.NewLogSink(log), func() {}, nil
	}
	client, err := audit.NewKafkaClient(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
	if err != nil {
		return nil, func() {}, err
	}
	queue := audit.NewAsyncSink(auditQueueSize, log)
	worker := audit.NewWorker(audit.NewKafkaSink(client, cfg.Audit.KafkaTopic), queue.Inbox(), log)
	g.Go(func() error {
		if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return queue, client.Close, nil
}

// identityStack returns the bearer verifier for the API, the login flow's
// code exchanger, and the verifier the login flow checks ID tokens with.
func identityStack(cfg config.Server) (access.IdentityVerifier, identity.CodeExchanger, identity.Verifier) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost" + cfg.Addr
	}
	if cfg.Identity.Mode == config.IdentityGoogle {
		v := identity.NewGoogleVerifier(cfg.Identity.ClientID)
		return v, identity.NewGoogleExchanger(cfg.Identity.ClientID, cfg.Identity.ClientSecret, baseURL), v
	}
	v := identity.NewLocalVerifier(cfg.Identity.LocalSigningKey, tokenIssuer, tokenIssuer)
	return v, identity.NewLocalExchanger(v, baseURL), v
}
