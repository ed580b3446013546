package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Gemini    GeminiConfig
	Pipeline  PipelineConfig
	Breaker   BreakerConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL          string
	StreamMaxAge time.Duration
}

type GeminiConfig struct {
	APIKey          string
	CompletionModel string
	EmbeddingModel  string
	EmbeddingDim    int
	RequestTimeout  time.Duration
}

// PipelineConfig tunes the retrieval pipeline. Weights are applied by the
// reranker; see recommend.Weights.
type PipelineConfig struct {
	VectorSearchTopK int
	RerankTopN       int
	CatalogScanLimit int
	EnableDiversity  bool
	DiversityHead    int
	EnableDebug      bool
	Timeout          time.Duration
	TimeZone         string

	SemanticWeight  float64
	ContextWeight   float64
	RatingWeight    float64
	SocialWeight    float64
	DistancePenalty float64
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

type CacheConfig struct {
	EmbeddingLRUSize int
	EmbeddingTTL     time.Duration
}

type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Gemini: GeminiConfig{
			APIKey:          k.String("gemini.api.key"),
			CompletionModel: k.String("gemini.completion.model"),
			EmbeddingModel:  k.String("gemini.embedding.model"),
			EmbeddingDim:    k.Int("gemini.embedding.dim"),
		},
		Pipeline: PipelineConfig{
			VectorSearchTopK: k.Int("pipeline.vector.top.k"),
			RerankTopN:       k.Int("pipeline.rerank.top.n"),
			CatalogScanLimit: k.Int("pipeline.catalog.scan.limit"),
			DiversityHead:    k.Int("pipeline.diversity.head"),
			TimeZone:         k.String("pipeline.timezone"),
			SemanticWeight:   k.Float64("pipeline.weight.semantic"),
			ContextWeight:    k.Float64("pipeline.weight.context"),
			RatingWeight:     k.Float64("pipeline.weight.rating"),
			SocialWeight:     k.Float64("pipeline.weight.social"),
			DistancePenalty:  k.Float64("pipeline.weight.distance"),
		},
		Breaker: BreakerConfig{
			MaxRequests:      uint32(k.Int("breaker.max.requests")),
			FailureThreshold: uint32(k.Int("breaker.failure.threshold")),
		},
		Cache: CacheConfig{
			EmbeddingLRUSize: k.Int("cache.embedding.size"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
			WindowSec:   k.Int("ratelimit.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Booleans default to true, so only an explicit value can turn them off.
	cfg.Pipeline.EnableDiversity = true
	if k.Exists("pipeline.enable.diversity") {
		cfg.Pipeline.EnableDiversity = k.Bool("pipeline.enable.diversity")
	}
	cfg.Pipeline.EnableDebug = true
	if k.Exists("pipeline.enable.debug") {
		cfg.Pipeline.EnableDebug = k.Bool("pipeline.enable.debug")
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg)

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"server.write.timeout", "60s", &cfg.Server.WriteTimeout},
		{"gemini.request.timeout", "20s", &cfg.Gemini.RequestTimeout},
		{"pipeline.timeout", "45s", &cfg.Pipeline.Timeout},
		{"breaker.interval", "60s", &cfg.Breaker.Interval},
		{"breaker.timeout", "30s", &cfg.Breaker.Timeout},
		{"cache.embedding.ttl", "24h", &cfg.Cache.EmbeddingTTL},
		{"nats.stream.max.age", "168h", &cfg.NATS.StreamMaxAge},
	}
	for _, d := range durations {
		s := k.String(d.key)
		if s == "" {
			s = d.def
		}
		*d.dest, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "recommender"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "recommender"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Gemini.CompletionModel == "" {
		cfg.Gemini.CompletionModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Gemini.EmbeddingDim == 0 {
		cfg.Gemini.EmbeddingDim = 768
	}
	if cfg.Pipeline.VectorSearchTopK == 0 {
		cfg.Pipeline.VectorSearchTopK = 50
	}
	if cfg.Pipeline.RerankTopN == 0 {
		cfg.Pipeline.RerankTopN = 15
	}
	if cfg.Pipeline.CatalogScanLimit == 0 {
		cfg.Pipeline.CatalogScanLimit = 5000
	}
	if cfg.Pipeline.DiversityHead == 0 {
		cfg.Pipeline.DiversityHead = 10
	}
	if cfg.Pipeline.TimeZone == "" {
		cfg.Pipeline.TimeZone = "Asia/Jerusalem"
	}
	if cfg.Pipeline.SemanticWeight == 0 && cfg.Pipeline.ContextWeight == 0 &&
		cfg.Pipeline.RatingWeight == 0 && cfg.Pipeline.SocialWeight == 0 {
		cfg.Pipeline.SemanticWeight = 0.5
		cfg.Pipeline.ContextWeight = 0.2
		cfg.Pipeline.RatingWeight = 0.15
		cfg.Pipeline.SocialWeight = 0.15
	}
	if cfg.Pipeline.DistancePenalty == 0 {
		cfg.Pipeline.DistancePenalty = 0.01
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Cache.EmbeddingLRUSize == 0 {
		cfg.Cache.EmbeddingLRUSize = 1024
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
