// Package config loads service configuration from a YAML file plus
// environment overrides through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the memory backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Memory    MemoryConfig    `mapstructure:"memory"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN renders the gorm/pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URI      string        `mapstructure:"uri"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Enabled  bool          `mapstructure:"enabled"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Driver  string        `mapstructure:"driver"` // "pgvector" or "milvus"
	Timeout time.Duration `mapstructure:"timeout"`
	Milvus  MilvusConfig  `mapstructure:"milvus"`
}

type MilvusConfig struct {
	Address    string `mapstructure:"address"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

// BlobConfig selects the audio blob store backend.
type BlobConfig struct {
	Driver string      `mapstructure:"driver"` // "minio" or "tos"
	Bucket string      `mapstructure:"bucket"`
	Minio  MinioConfig `mapstructure:"minio"`
	TOS    TOSConfig   `mapstructure:"tos"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type TOSConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // "openai" or "ollama"
	Model    string `mapstructure:"model"`

	// Dimension is the vector length the model produces. It must match the
	// pgvector column width and the milvus collection dimension; embeddings
	// of any other length are rejected before they reach the index.
	Dimension int `mapstructure:"dimension"`

	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// MemoryConfig holds the retrieval and clustering tunables.
type MemoryConfig struct {
	ClusterThreshold  float64       `mapstructure:"cluster_threshold"`
	RecallK           int           `mapstructure:"recall_k"`
	RecallThreshold   float64       `mapstructure:"recall_threshold"`
	Overfetch         int           `mapstructure:"overfetch"`
	GraphDepth        int           `mapstructure:"graph_depth"`
	VectorWeight      float64       `mapstructure:"vector_weight"`
	GraphWeight       float64       `mapstructure:"graph_weight"`
	ConfidenceWeight  float64       `mapstructure:"confidence_weight"`
	ResultCacheTTL    time.Duration `mapstructure:"result_cache_ttl"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	BackfillSchedule  string        `mapstructure:"backfill_schedule"`
	BackfillBatchSize int           `mapstructure:"backfill_batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "agentmemz")
	v.SetDefault("postgres.database", "agent_memory")
	v.SetDefault("postgres.ssl_mode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.timeout", 50*time.Millisecond)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.enabled", true)
	v.SetDefault("neo4j.timeout", 500*time.Millisecond)

	v.SetDefault("vector.driver", "pgvector")
	v.SetDefault("vector.timeout", 500*time.Millisecond)
	v.SetDefault("vector.milvus.address", "localhost:19530")
	v.SetDefault("vector.milvus.collection", "agentmemz_facts")
	v.SetDefault("vector.milvus.dimension", 1536)

	v.SetDefault("blob.driver", "minio")
	v.SetDefault("blob.bucket", "audio-recordings")
	v.SetDefault("blob.minio.endpoint", "localhost:9000")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("embedding.dimension", 1536) // ada-002 output length
	v.SetDefault("embedding.timeout", 2*time.Second)
	v.SetDefault("embedding.cache_ttl", 7*24*time.Hour)

	v.SetDefault("memory.cluster_threshold", 0.75)
	v.SetDefault("memory.recall_k", 10)
	v.SetDefault("memory.recall_threshold", 0.7)
	v.SetDefault("memory.overfetch", 4)
	v.SetDefault("memory.graph_depth", 2)
	v.SetDefault("memory.vector_weight", 0.6)
	v.SetDefault("memory.graph_weight", 0.2)
	v.SetDefault("memory.confidence_weight", 0.2)
	v.SetDefault("memory.result_cache_ttl", time.Hour)
	v.SetDefault("memory.session_ttl", time.Hour)
	v.SetDefault("memory.backfill_schedule", "@every 5m")
	v.SetDefault("memory.backfill_batch_size", 100)
}

// Load reads configuration from the given file (optional) and the
// AGENTMEMZ_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTMEMZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
