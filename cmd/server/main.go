package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	adminhandler "landregistry/internal/admin/handler"
	"landregistry/internal/asset"
	"landregistry/internal/asset/blob"
	"landregistry/internal/audit"
	"landregistry/internal/jwttoken"
	"landregistry/internal/ledger"
	"landregistry/internal/platform/config"
	"landregistry/internal/platform/database"
	"landregistry/internal/platform/httpserver"
	"landregistry/internal/platform/logger"
	"landregistry/internal/platform/metrics"
	platformredis "landregistry/internal/platform/redis"
	"landregistry/internal/principal"
	"landregistry/internal/query"
	registryhandler "landregistry/internal/registry/handler"
	httptransport "landregistry/internal/transport/http"
	"landregistry/internal/workflow"
	wfmetrics "landregistry/internal/workflow/metrics"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it every store degrades to memory, which
	// keeps the binary runnable in dev with no infrastructure at all.
	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = database.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	blobStore, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		log.Error("blob store init failed", "error", err, "driver", cfg.Blob.Driver)
		os.Exit(1)
	}

	var (
		assetStore     asset.Store
		principalStore principal.Store
		ledgerStore    ledger.Store
		requestStore   workflow.Store
		auditStore     audit.Store
		txRunner       workflow.TxRunner = workflow.NopTxRunner{}
	)
	if db != nil {
		assetStore = asset.NewPostgresStore(db)
		principalStore = principal.NewPostgresStore(db)
		ledgerStore = ledger.NewPostgresStore(db)
		requestStore = workflow.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		txRunner = newWorkflowPostgresTx(db)
	} else {
		assetStore = asset.NewInMemoryStore()
		principalStore = principal.NewInMemoryStore()
		ledgerStore = ledger.NewInMemoryStore()
		requestStore = workflow.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
	}
	auditSvc := audit.NewService(auditStore, auditOpts...)
	auditInbox := make(chan audit.Event, 256)
	auditWorker := audit.NewWorker(auditSvc, auditInbox)

	assets := asset.NewService(assetStore, blobStore, asset.WithLogger(log))
	principals := principal.NewService(principalStore, assets, principal.WithLogger(log))
	ledgerSvc := ledger.NewService(ledgerStore, ledger.WithLogger(log))
	workflowSvc := workflow.NewService(requestStore, principals, ledgerSvc, assets,
		workflow.WithTxRunner(txRunner),
		workflow.WithAuditor(audit.NewAsyncEmitter(auditInbox)),
		workflow.WithMetrics(wfmetrics.New()),
		workflow.WithLogger(log),
	)

	queryOpts := []query.Option{query.WithLogger(log)}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		queryOpts = append(queryOpts, query.WithCache(query.NewRedisCache(redisClient.Client), 30*time.Second))
	}
	querySvc := query.NewService(workflowSvc, ledgerSvc, principals, queryOpts...)

	if err := principals.SeedAdmins(ctx, cfg.AdminPrincipals); err != nil {
		log.Error("admin seeding failed", "error", err)
		os.Exit(1)
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "landregistry")
	httpMetrics := metrics.New()

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = dbHealth{db}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter([]httptransport.Registrar{
		registryhandler.New(principals, assets, workflowSvc, querySvc, log, httpMetrics, tokens),
		adminhandler.New(workflowSvc, log, httpMetrics, tokens),
	}, checks)

	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting land registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := auditWorker.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "fs":
		return blob.NewFilesystem(cfg.Dir)
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return blob.NewMemory(), nil
	}
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
