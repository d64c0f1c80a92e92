// Package bootstrap is the composition root: it loads configuration, opens
// every outbound connection, and wires every package's collaborators into
// the two process shapes this service runs as (HTTP server, queue worker).
// Grounded on the teacher's pkg/bootstrap.Server: a struct holding the
// resolved config plus every long-lived dependency, a NewServer that fails
// fast on any wiring error, and Start/Stop methods around a stdlib
// http.Server, generalized from the teacher's single gin router + registry
// to this service's full dependency graph (database, Redis, object
// storage, embedder, LLM, retrieval engine, connector OAuth).
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/api"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ask"
	"github.com/SaintWyss/rag-corp-sub001/pkg/authn"
	"github.com/SaintWyss/rag-corp-sub001/pkg/config"
	"github.com/SaintWyss/rag-corp-sub001/pkg/connector"
	"github.com/SaintWyss/rag-corp-sub001/pkg/database"
	"github.com/SaintWyss/rag-corp-sub001/pkg/embedding"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest/chunk"
	"github.com/SaintWyss/rag-corp-sub001/pkg/ingest/extract"
	"github.com/SaintWyss/rag-corp-sub001/pkg/injection"
	"github.com/SaintWyss/rag-corp-sub001/pkg/llm"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
	"github.com/SaintWyss/rag-corp-sub001/pkg/queue"
	"github.com/SaintWyss/rag-corp-sub001/pkg/resilience"
	"github.com/SaintWyss/rag-corp-sub001/pkg/retrieval"
	"github.com/SaintWyss/rag-corp-sub001/pkg/security"
	"github.com/SaintWyss/rag-corp-sub001/pkg/storage"
	"github.com/SaintWyss/rag-corp-sub001/pkg/sync"
)

// App collects every wired dependency, shared between the HTTP server and
// the queue worker processes — both load the same App and run a different
// loop over it.
type App struct {
	Config        *config.Config
	DB            *gorm.DB
	Redis         *redis.Client
	Facade        *database.Facade
	Storage       storage.Storage
	Queue         *queue.Queue
	Embedder      ingest.Embedder
	Generator     ask.Generator
	Pipeline      *ingest.Pipeline
	Orchestrator  *ask.Orchestrator
	SyncEngine    *sync.Engine
	Encryption    *security.TokenEncryption
	OAuth         *connector.GoogleOAuth
	Authenticator *authn.Authenticator
	RateLimiter   *resilience.RateLimiter

	httpServer *http.Server
}

// New loads configuration and wires every dependency. It fails fast on the
// first error, matching the teacher's NewServer.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogText)

	db, err := connectDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect database: %w", err)
	}
	database.Init(db)
	facade := database.Global()

	rdb := redis.NewClient(asRedisOptions(cfg))
	jobQueue := queue.New(rdb, queue.DefaultQueueName)

	blobStore, err := storage.New(storage.Config{
		Provider:      cfg.Storage.Provider,
		Endpoint:      cfg.Storage.Endpoint,
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		LocalBasePath: cfg.Storage.LocalRoot,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: storage: %w", err)
	}

	embedder := newEmbedder(cfg)
	generator := newGenerator(cfg)

	parsers := extract.NewRegistry()
	parsers.Register(extract.PDFMime, func() extract.Parser {
		return &extract.PDFParser{MaxChars: cfg.Retrieval.MaxContextChars, MaxPages: 500}
	})
	parsers.Register(extract.DOCXMime, func() extract.Parser {
		return &extract.DOCXParser{MaxChars: cfg.Retrieval.MaxContextChars}
	})
	parsers.Register(extract.TXTMime, func() extract.Parser {
		return &extract.PlainTextParser{MaxChars: cfg.Retrieval.MaxContextChars}
	})

	docStore := &pipelineStore{documents: facade.Document, chunks: facade.Chunk}
	pipeline := ingest.NewPipeline(docStore, blobStore, embedder, parsers, ingest.Config{
		ChunkConfig:     chunk.Config{ChunkSize: cfg.Ingest.ChunkSize, Overlap: cfg.Ingest.ChunkOverlap},
		MaxExtractChars: cfg.Retrieval.MaxContextChars * 4,
		MaxExtractPages: 500,
	})

	retrievalEngine := retrieval.NewEngine(facade.Chunk, newReranker(cfg, generator))
	orchestrator := ask.NewOrchestrator(facade.Workspace, facade.Document, retrievalEngine, embedder, generator, ask.Config{
		ContextBudget:       cfg.Retrieval.MaxContextChars,
		PromptVersion:       cfg.LLM.PromptVersion,
		RerankEnabled:       cfg.Retrieval.EnableRerank,
		RerankMultiplier:    cfg.Retrieval.RerankCandidateMultiplier,
		RerankMaxCandidates: cfg.Retrieval.RerankMaxCandidates,
	})

	oauth, err := connector.NewGoogleOAuth(cfg.Connector.GoogleClientID, cfg.Connector.GoogleClientSecret)
	if err != nil {
		logging.Warnf("bootstrap: google oauth not configured, connector linking will fail at Google rather than locally: %v", err)
		oauth, _ = connector.NewGoogleOAuth("unconfigured", "unconfigured")
	}

	encryption, err := newEncryption(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: encryption: %w", err)
	}

	driveFactory := connector.NewDriveClientFactory(cfg.Connector.MaxFileBytes, resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:    time.Duration(cfg.Retry.MaxDelaySeconds * float64(time.Second)),
	})
	syncDocStore := &syncDocumentStore{documents: facade.Document, chunks: facade.Chunk}
	syncEngine := sync.NewEngine(facade.Connector, facade.Connector, syncDocStore, encryption, oauth, driveFactory)

	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: authenticator: %w", err)
	}

	return &App{
		Config:        cfg,
		DB:            db,
		Redis:         rdb,
		Facade:        facade,
		Storage:       blobStore,
		Queue:         jobQueue,
		Embedder:      embedder,
		Generator:     generator,
		Pipeline:      pipeline,
		Orchestrator:  orchestrator,
		SyncEngine:    syncEngine,
		Encryption:    encryption,
		OAuth:         oauth,
		Authenticator: authenticator,
		RateLimiter:   resilience.NewRateLimiterWithCapacity(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.MaxBuckets),
	}, nil
}

// Router builds the chi.Mux the HTTP server listens on.
func (a *App) Router() http.Handler {
	return api.NewRouter(api.Deps{
		Authenticator:      a.Authenticator,
		RateLimiter:        a.RateLimiter,
		Ask:                api.NewAskHandler(a.Orchestrator, injection.Mode(a.Config.Injection.Mode), a.Config.Injection.RiskThreshold),
		Documents:          api.NewDocumentHandler(a.Facade.Workspace, a.Facade.Document, a.Facade.Chunk, a.Storage, a.Queue, a.Config.Server.MaxUploadBytes),
		Connectors:         api.NewConnectorHandler(a.Facade.Workspace, a.Facade.Connector, a.OAuth, a.Encryption, a.Config.Connector.OAuthRedirectTemplate),
		Health:             api.NewHealthHandler(a.DB),
		MaxBodyBytes:       a.Config.Server.MaxBodyBytes,
		MetricsRequireAuth: a.Config.Auth.MetricsRequireAuth,
	})
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (a *App) ListenAndServe() error {
	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.Router(),
	}
	logging.Infof("ragserver listening on port %d", a.Config.Server.Port)
	return a.httpServer.ListenAndServe()
}

// Shutdown gracefully drains the HTTP server and closes the Redis client.
func (a *App) Shutdown(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.Redis.Close()
}

func connectDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.PoolMaxSize)
	sqlDB.SetMaxIdleConns(cfg.Database.PoolMinSize)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func asRedisOptions(cfg *config.Config) *redis.Options {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Warnf("bootstrap: invalid REDIS_URL, falling back to default: %v", err)
		return &redis.Options{Addr: "localhost:6379"}
	}
	return opts
}

func newEmbedder(cfg *config.Config) ingest.Embedder {
	if cfg.Fakes.FakeEmbeddings {
		return embedding.NewFakeClient(cfg.Embedding.Dimension)
	}
	return breakEmbedder(embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimension), "embedding")
}

func newGenerator(cfg *config.Config) ask.Generator {
	if cfg.Fakes.FakeLLM {
		return llm.NewFakeGenerator()
	}
	return breakGenerator(llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, 1024, 0.2), "llm")
}

// newReranker returns nil when reranking is disabled (the engine's
// RerankEnabled guard then never fires), a deterministic FakeReranker
// under FAKE_LLM=1, or an LLMReranker reusing the same chat model the
// orchestrator already generates answers with.
func newReranker(cfg *config.Config, generator ask.Generator) retrieval.Reranker {
	if !cfg.Retrieval.EnableRerank {
		return nil
	}
	if cfg.Fakes.FakeLLM {
		return retrieval.NewFakeReranker()
	}
	return retrieval.NewLLMReranker(generator)
}

func newEncryption(cfg *config.Config) (*security.TokenEncryption, error) {
	key := []byte(cfg.Connector.EncryptionKey)
	if len(key) == 0 {
		key = make([]byte, 32)
	}
	return security.NewTokenEncryption(key)
}

func newAuthenticator(cfg *config.Config) (*authn.Authenticator, error) {
	apiKeys, err := authn.ParseAPIKeysConfig(cfg.Auth.APIKeysConfigJSON)
	if err != nil {
		return nil, err
	}
	return authn.NewAuthenticator([]byte(cfg.Auth.JWTSecret), apiKeys), nil
}

