// Package config loads process configuration once at start-up from
// environment variables (with an optional YAML overlay), following the
// teacher's env-var-with-defaults convention.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved, read-only process configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Injection  InjectionConfig  `yaml:"injection"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Retry      RetryConfig      `yaml:"retry"`
	Connector  ConnectorConfig  `yaml:"connector"`
	Fakes      FakesConfig      `yaml:"fakes"`
	LogLevel   string           `yaml:"log_level"`
	LogText    bool             `yaml:"log_text"`
}

type ServerConfig struct {
	Port          int `yaml:"port"`
	MaxBodyBytes  int64 `yaml:"max_body_bytes"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	DSN                string `yaml:"dsn"`
	PoolMinSize        int    `yaml:"pool_min_size"`
	PoolMaxSize        int    `yaml:"pool_max_size"`
	StatementTimeoutMS int    `yaml:"statement_timeout_ms"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BaseURL   string `yaml:"base_url"`
}

type LLMConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	PromptVersion string `yaml:"prompt_version"`
}

type StorageConfig struct {
	Provider  string `yaml:"provider"` // s3, local
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	LocalRoot string `yaml:"local_root"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	JWTCookieSecure    bool   `yaml:"jwt_cookie_secure"`
	JWTAccessTTLMinutes int   `yaml:"jwt_access_ttl_minutes"`
	MetricsRequireAuth bool   `yaml:"metrics_require_auth"`
	APIKeysConfigJSON  string `yaml:"api_keys_config"`
}

type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	MaxTopK                  int     `yaml:"max_top_k"`
	MaxContextChars          int     `yaml:"max_context_chars"`
	EnableRerank             bool    `yaml:"enable_rerank"`
	RerankCandidateMultiplier int    `yaml:"rerank_candidate_multiplier"`
	RerankMaxCandidates      int     `yaml:"rerank_max_candidates"`
	MMRLambda                float64 `yaml:"mmr_lambda"`
}

type InjectionConfig struct {
	Mode          string  `yaml:"mode"` // off, downrank, exclude
	RiskThreshold float64 `yaml:"risk_threshold"`
}

type RateLimitConfig struct {
	RPS       float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
	MaxBuckets int    `yaml:"max_buckets"`
}

type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`
	MaxDelaySeconds  float64 `yaml:"max_delay_seconds"`
}

type ConnectorConfig struct {
	EncryptionKey        string `yaml:"encryption_key"`
	MaxFilesPerSync      int    `yaml:"max_files_per_sync"`
	MaxFileBytes         int64  `yaml:"max_file_bytes"`
	GoogleClientID       string `yaml:"google_client_id"`
	GoogleClientSecret   string `yaml:"google_client_secret"`
	OAuthRedirectTemplate string `yaml:"oauth_redirect_template"`
}

type FakesConfig struct {
	FakeLLM        bool `yaml:"fake_llm"`
	FakeEmbeddings bool `yaml:"fake_embeddings"`
}

// Load resolves configuration from environment variables, then overlays a
// YAML file at CONFIG_PATH if one exists.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			MaxBodyBytes:   getEnvInt64("MAX_BODY_BYTES", 10*1024*1024),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 50*1024*1024),
		},
		Database: DatabaseConfig{
			DSN:                getEnv("DATABASE_URL", "postgres://localhost:5432/rag?sslmode=disable"),
			PoolMinSize:        getEnvInt("DB_POOL_MIN_SIZE", 2),
			PoolMaxSize:        getEnvInt("DB_POOL_MAX_SIZE", 10),
			StatementTimeoutMS: getEnvInt("DB_STATEMENT_TIMEOUT_MS", 30000),
		},
		Redis: RedisConfig{URL: getEnv("REDIS_URL", "redis://localhost:6379/0")},
		Embedding: EmbeddingConfig{
			APIKey:    getEnv("GOOGLE_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 768),
			BaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
		},
		LLM: LLMConfig{
			APIKey:        getEnv("GOOGLE_API_KEY", ""),
			Model:         getEnv("LLM_MODEL", "claude-3-5-sonnet-latest"),
			PromptVersion: getEnv("PROMPT_VERSION", "v1"),
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "local"),
			Bucket:    getEnv("STORAGE_BUCKET", "rag-documents"),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			LocalRoot: getEnv("STORAGE_LOCAL_ROOT", "/tmp/rag-storage"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			JWTCookieSecure:     getEnvBool("JWT_COOKIE_SECURE", true),
			JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 30),
			MetricsRequireAuth:  getEnvBool("METRICS_REQUIRE_AUTH", false),
			APIKeysConfigJSON:   getEnv("API_KEYS_CONFIG", "{}"),
		},
		Ingest: IngestConfig{
			ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		},
		Retrieval: RetrievalConfig{
			MaxTopK:                   getEnvInt("MAX_TOP_K", 50),
			MaxContextChars:           getEnvInt("MAX_CONTEXT_CHARS", 12000),
			EnableRerank:              getEnvBool("ENABLE_RERANK", false),
			RerankCandidateMultiplier: getEnvInt("RERANK_CANDIDATE_MULTIPLIER", 5),
			RerankMaxCandidates:       getEnvInt("RERANK_MAX_CANDIDATES", 200),
			MMRLambda:                 0.5,
		},
		Injection: InjectionConfig{
			Mode:          getEnv("RAG_INJECTION_FILTER_MODE", "downrank"),
			RiskThreshold: getEnvFloat("RAG_INJECTION_RISK_THRESHOLD", 0.6),
		},
		RateLimit: RateLimitConfig{
			RPS:        getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:      getEnvInt("RATE_LIMIT_BURST", 10),
			MaxBuckets: 10000,
		},
		Retry: RetryConfig{
			MaxAttempts:      getEnvInt("RETRY_MAX_ATTEMPTS", 5),
			BaseDelaySeconds: getEnvFloat("RETRY_BASE_DELAY_SECONDS", 1.0),
			MaxDelaySeconds:  getEnvFloat("RETRY_MAX_DELAY_SECONDS", 30.0),
		},
		Connector: ConnectorConfig{
			EncryptionKey:         getEnv("CONNECTOR_ENCRYPTION_KEY", ""),
			MaxFilesPerSync:       100,
			MaxFileBytes:          getEnvInt64("MAX_UPLOAD_BYTES", 50*1024*1024),
			GoogleClientID:        getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
			GoogleClientSecret:    getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
			OAuthRedirectTemplate: getEnv("OAUTH_REDIRECT_URI_TEMPLATE", "http://localhost:8080/v1/workspaces/{workspace_id}/connectors/oauth/callback"),
		},
		Fakes: FakesConfig{
			FakeLLM:        getEnvBool("FAKE_LLM", false),
			FakeEmbeddings: getEnvBool("FAKE_EMBEDDINGS", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogText:  getEnvBool("LOG_TEXT", false),
	}

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.Fakes.FakeLLM || !c.Fakes.FakeEmbeddings {
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("config: GOOGLE_API_KEY required unless FAKE_LLM and FAKE_EMBEDDINGS are both set")
		}
	}
	if len(c.Auth.JWTSecret) > 0 && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 characters")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("config: CHUNK_OVERLAP must be >= 0 and < CHUNK_SIZE")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
