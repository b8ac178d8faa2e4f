package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kailas-cloud/prodscout/internal/config"
	"github.com/kailas-cloud/prodscout/internal/db"
	"github.com/kailas-cloud/prodscout/internal/db/memory"
	"github.com/kailas-cloud/prodscout/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/prodscout/internal/db/redis"
	"github.com/kailas-cloud/prodscout/internal/domain"
	logpkg "github.com/kailas-cloud/prodscout/internal/logger"
	"github.com/kailas-cloud/prodscout/internal/metrics"
	"github.com/kailas-cloud/prodscout/internal/repository/catalog"
	"github.com/kailas-cloud/prodscout/internal/repository/embcache"
	"github.com/kailas-cloud/prodscout/internal/repository/index"
	chiTransport "github.com/kailas-cloud/prodscout/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/prodscout/internal/transport/openai"
	compareuc "github.com/kailas-cloud/prodscout/internal/usecase/compare"
	embeddinguc "github.com/kailas-cloud/prodscout/internal/usecase/embedding"
	filteruc "github.com/kailas-cloud/prodscout/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/prodscout/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodscout/internal/usecase/search"
	"github.com/kailas-cloud/prodscout/internal/usecase/session"
	"github.com/kailas-cloud/prodscout/internal/version"
)

// catalogReader is satisfied by both catalog adapters and consumed by search and compare.
type catalogReader interface {
	GetByURNs(ctx context.Context, urns []string) (map[string]json.RawMessage, error)
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prodscout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("index_provider", cfg.Index.Provider),
		zap.String("catalog_driver", cfg.Catalog.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx := context.Background()
	health := healthuc.New()

	// Redis/Valkey store, shared by the session cache, the RediSearch indexes
	// and the hash catalog when any of them is configured to use it.
	var store *dbRedis.Store
	if needsRedis(cfg) {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Session KV
	var kv db.KV
	if cfg.Cache.Driver == "memory" {
		mem := memory.NewStore(cfg.Cache.TTL(), time.Minute)
		defer mem.Close()
		kv = mem
	} else {
		kv = store
	}
	health.Add("cache", kv)

	// Postgres, shared by the pgvector index and the relational catalog.
	pg := openPostgres(cfg, logger)
	if pg != nil {
		defer func() { _ = postgres.Close(pg) }()
		health.Add("postgres", postgres.NewPinger(pg))
	}

	queryEmbedder := buildEmbedder(cfg, kv, logger)
	if hc, ok := queryEmbedder.(domain.HealthChecker); ok {
		health.WithEmbedding(hc)
	}
	logger.Info("Query embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	pair, err := buildIndexPair(cfg, store, pg, queryEmbedder)
	if err != nil {
		logger.Fatal("Failed to create index backends", zap.Error(err))
	}
	defer func() { _ = pair.Close() }()

	products := buildCatalog(cfg, store, pg)

	// Use case services
	sessions := session.New(kv, logger).
		WithTTL(cfg.Cache.TTL()).
		WithNamespace(cfg.Cache.KeyNamespace)
	dispatcher := searchuc.NewDispatcher(pair.Dense, pair.Sparse).
		WithFetchCap(cfg.Index.FetchCap).
		WithRetry(uint(cfg.Index.MaxRetries), cfg.Index.RetryInitial()) //nolint:gosec // validated positive
	searchSvc := searchuc.New(dispatcher, searchuc.NewEnricher(products), sessions).
		WithRRFK(cfg.Index.RRFK)
	filterSvc := filteruc.New(sessions)
	compareSvc := compareuc.New(sessions, products)
	health.WithSessionCache(sessions)

	server := chiTransport.NewServer(searchSvc, filterSvc, compareSvc, sessions, health)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func needsRedis(cfg config.Config) bool {
	return cfg.Cache.Driver != "memory" || cfg.Index.Provider == "redis" || cfg.Catalog.Driver == "redis"
}

// openPostgres connects once when either the index or the catalog lives in Postgres.
// Both DSNs normally point at the same database; the index DSN wins.
func openPostgres(cfg config.Config, logger *zap.Logger) *gorm.DB {
	dsn := ""
	switch {
	case cfg.Index.Provider == "pgvector":
		dsn = cfg.Index.PGVectorDSN
	case cfg.Catalog.Driver == "postgres":
		dsn = cfg.Catalog.DSN
	default:
		return nil
	}
	pg, err := postgres.Open(postgres.Config{DSN: dsn}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	logger.Info("Connected to postgres")
	return pg
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.Config, kv db.KV, logger *zap.Logger) domain.Embedder {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = embcache.New(base, kv, metrics.EmbeddingCacheTotal, logger).
		WithNamespace(cfg.Cache.KeyNamespace).
		WithTTL(time.Duration(ec.CacheTTLHours) * time.Hour)

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)

	// Instruction prefix (outermost, cache key includes instruction)
	if ec.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}

	return embedder
}

func buildIndexPair(cfg config.Config, store *dbRedis.Store, pg *gorm.DB, embedder domain.Embedder) (index.Pair, error) {
	ic := cfg.Index
	switch ic.Provider {
	case "pgvector":
		pair, err := index.NewPGVectorPair(pg, embedder, ic.PGVectorTable, ic.BlevePath)
		if err != nil {
			return index.Pair{}, fmt.Errorf("pgvector pair: %w", err)
		}
		return pair, nil
	default:
		return index.NewRedisPair(store, embedder,
			index.RedisOptions{IndexName: ic.DenseIndex, KeyPrefix: ic.KeyPrefix},
			index.RedisOptions{IndexName: ic.SparseIndex, KeyPrefix: ic.KeyPrefix},
		), nil
	}
}

// buildCatalog returns nil for driver "none"; enrichment then falls back to index metadata.
func buildCatalog(cfg config.Config, store *dbRedis.Store, pg *gorm.DB) catalogReader {
	switch cfg.Catalog.Driver {
	case "postgres":
		return catalog.NewPostgres(pg)
	case "redis":
		return catalog.NewRedis(store, cfg.Catalog.KeyPrefix)
	default:
		return nil
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("http_request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
