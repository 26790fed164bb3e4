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

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fundgate/internal/audit"
	audithandler "fundgate/internal/audit/handler"
	"fundgate/internal/audit/mirror"
	"fundgate/internal/audit/statscache"
	auditpostgres "fundgate/internal/audit/store/postgres"
	"fundgate/internal/flags"
	flagshandler "fundgate/internal/flags/handler"
	flagspostgres "fundgate/internal/flags/store/postgres"
	"fundgate/internal/fund"
	fundhandler "fundgate/internal/fund/handler"
	"fundgate/internal/fund/service"
	fundpostgres "fundgate/internal/fund/store/postgres"
	jwttoken "fundgate/internal/jwt_token"
	"fundgate/internal/platform/config"
	"fundgate/internal/platform/httpserver"
	"fundgate/internal/platform/logger"
	"fundgate/internal/platform/metrics"
	platformredis "fundgate/internal/platform/redis"
)

// main wires dependencies and keeps the process lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		fundStore  fund.Store
		flagStore  flags.Store
		auditStore audit.Store
		txRunner   service.TxRunner
		db         *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err.Error())
			os.Exit(1)
		}
		fundStore = fundpostgres.New(db)
		flagStore = flagspostgres.New(db)
		auditStore = auditpostgres.New(db)
		txRunner = newPostgresTxRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		fundStore = fund.NewMemoryStore()
		flagStore = flags.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		txRunner = service.NewMemoryTxRunner()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditOpts := []audit.Option{}
	if redisClient != nil {
		auditOpts = append(auditOpts, audit.WithStatsCache(statscache.New(redisClient, cfg.StatsCacheTTL, log)))
	} else {
		auditOpts = append(auditOpts, audit.WithStatsCache(statscache.NewLocal(cfg.StatsCacheTTL)))
	}
	auditSvc := audit.NewService(auditStore, m, auditOpts...)

	registry := flags.NewRegistry(flagStore, auditSvc)
	authorizer := service.NewAuthorizer(fundStore, registry, auditSvc, txRunner, log, m)

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "fundgate", "fundgate")
	validator := jwttoken.NewMiddlewareAdapter(jwtSvc)

	router := chi.NewRouter()
	fundhandler.New(authorizer, log, m, validator).Register(router)
	flagshandler.New(registry, log, m, validator).Register(router)
	audithandler.New(auditSvc, log, m, validator).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", healthHandler(db, redisClient))

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting fundgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mirror.NewKafkaProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("connect kafka", "error", err.Error())
			os.Exit(1)
		}
		defer producer.Close()
		worker := mirror.NewWorker(auditStore, producer, log, time.Now())
		group.Go(func() error {
			log.Info("starting audit mirror", "topic", cfg.Kafka.AuditTopic)
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("fundgate stopped", "error", err.Error())
		os.Exit(1)
	}
	log.Info("fundgate stopped")
}

func healthHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, `{"status":"degraded","database":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, `{"status":"degraded","redis":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
