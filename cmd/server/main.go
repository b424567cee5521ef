package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/cache"
	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/enrichment"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/monitoring"
	"lead-enrichment/internal/platform/config"
	"lead-enrichment/internal/platform/httpserver"
	"lead-enrichment/internal/platform/logger"
	"lead-enrichment/internal/platform/redis"
	"lead-enrichment/internal/providers"
	"lead-enrichment/internal/ratelimit"
	httptransport "lead-enrichment/internal/transport/http"
	"lead-enrichment/internal/validation"
)

// main wires dependencies and owns the process lifecycle. Every backing
// service is optional in development: without Postgres, Redis, or Kafka the
// server runs on in-memory stores.
func main() {
	godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores.
	var leadStore lead.Store
	var auditStore audit.Store
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadStore = lead.NewPostgresStore(pool)
		auditStore = audit.NewPostgresStore(pool)
		log.Info("using postgres stores")
	} else {
		leadStore = lead.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		log.Warn("no postgres configured, using in-memory stores")
	}

	// Cache.
	var cacheStore cache.Store
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient)
		log.Info("using redis cache")
	} else {
		cacheStore = cache.NewMemoryStore()
		log.Warn("no redis configured, using in-memory cache")
	}
	cacheLayer := cache.NewLayer(cacheStore, log)

	// Audit publisher, optionally streaming to Kafka.
	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()

		stream := make(chan audit.Event, 256)
		auditOpts = append(auditOpts, audit.WithStream(stream))
		go audit.NewWorker(sink, stream, log).Run(ctx)
		log.Info("audit events streaming to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	auditor := audit.NewPublisher(auditStore, auditOpts...)

	// Compliance gate and credit codec.
	gate := compliance.NewGate(leadStore, auditor, compliance.KeywordClassifier{}, cfg.Consent.DefaultTTL)
	signer := compliance.NewExportSigner(cfg.ExportSigningKey)

	codecKey, err := cfg.CodecKey()
	if err != nil {
		log.Error("invalid credit codec key", "error", err)
		os.Exit(1)
	}
	codec, err := providers.NewSensitiveDataCodec(codecKey)
	if err != nil {
		log.Error("credit codec init failed", "error", err)
		os.Exit(1)
	}

	tracer := otel.Tracer("lead-enrichment/pipeline")

	// Providers.
	set, err := buildProviders(cfg.Providers, gate, auditor, codec, log, tracer)
	if err != nil {
		log.Error("provider wiring failed", "error", err)
		os.Exit(1)
	}

	// Pipeline and orchestration.
	engine := validation.NewEngine(cfg.Validation)
	pipeline := enrichment.NewPipeline(set, gate, engine, codec, log, tracer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	monitor := monitoring.NewService(registry)

	service := enrichment.NewService(leadStore, pipeline, cacheLayer, gate, auditor, monitor, enrichment.ServiceConfig{
		ResultTTL:    cfg.Cache.ResultTTL,
		HealthTTL:    cfg.Cache.HealthTTL,
		BatchMaxSize: cfg.Batch.MaxSize,
		BatchDelay:   cfg.Batch.Delay,
	}, log)

	handler := httptransport.NewHandler(service, gate, signer, auditor, monitor, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, registry))

	go func() {
		log.Info("lead enrichment server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildProviders assembles the three provider chains from configuration.
func buildProviders(cfg config.ProvidersConfig, gate *compliance.Gate, auditor *audit.Publisher, codec *providers.SensitiveDataCodec, log *slog.Logger, tracer trace.Tracer) (providers.Set, error) {
	propertyVendors, err := buildVendors(cfg.Property.Vendors)
	if err != nil {
		return nil, err
	}
	socialVendors, err := buildVendors(cfg.Social.Vendors)
	if err != nil {
		return nil, err
	}
	creditVendors, err := buildVendors(cfg.Credit.Vendors)
	if err != nil {
		return nil, err
	}

	return providers.Set{
		providers.SourceProperty: providers.NewPropertyProvider(
			propertyVendors,
			ratelimit.New(cfg.Property.RateLimit, cfg.Property.RateWindow),
			cfg.Property.Timeout, log, tracer),
		providers.SourceSocial: providers.NewSocialProvider(
			socialVendors,
			ratelimit.New(cfg.Social.RateLimit, cfg.Social.RateWindow),
			cfg.Social.Timeout, log, tracer),
		providers.SourceCredit: providers.NewCreditProvider(
			creditVendors,
			ratelimit.New(cfg.Credit.RateLimit, cfg.Credit.RateWindow),
			cfg.Credit.Timeout, gate, auditor, codec, log, tracer),
	}, nil
}

func buildVendors(endpoints []config.VendorEndpoint) ([]providers.Vendor, error) {
	vendors := make([]providers.Vendor, 0, len(endpoints))
	for _, ep := range endpoints {
		v, err := providers.BuildVendor(ep.Name, ep.BaseURL, ep.AuthStyle, ep.Credential, nil)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}
