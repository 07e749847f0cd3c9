// Package container wires the application graph with dig.
package container

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	goredis "github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/agentmemz/agentmemz/internal/application/repository/cache/redis"
	"github.com/agentmemz/agentmemz/internal/application/repository/graph"
	graphneo4j "github.com/agentmemz/agentmemz/internal/application/repository/graph/neo4j"
	"github.com/agentmemz/agentmemz/internal/application/repository/postgres"
	milvusindex "github.com/agentmemz/agentmemz/internal/application/repository/vecindex/milvus"
	"github.com/agentmemz/agentmemz/internal/application/repository/vecindex/pgvector"
	"github.com/agentmemz/agentmemz/internal/application/service/cluster"
	"github.com/agentmemz/agentmemz/internal/application/service/embedding"
	"github.com/agentmemz/agentmemz/internal/application/service/extractor"
	"github.com/agentmemz/agentmemz/internal/application/service/fact"
	"github.com/agentmemz/agentmemz/internal/application/service/file"
	"github.com/agentmemz/agentmemz/internal/application/service/ingest"
	"github.com/agentmemz/agentmemz/internal/application/service/recall"
	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/handler"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// Build assembles the dependency graph for the given configuration.
func Build(cfg *config.Config) (*dig.Container, error) {
	c := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() config.MemoryConfig { return cfg.Memory },

		newDB,
		newRedisClient,
		newGraphStore,
		newVectorIndex,
		newEmbeddingClient,
		newExtractor,
		newBlobStore,

		postgres.NewConversationRepository,
		postgres.NewMessageRepository,
		postgres.NewFactRepository,
		postgres.NewClusterRepository,
		newCache,
		newSessionStore,

		newClusterService,
		newIngestService,
		recall.NewService,
		fact.NewService,

		handler.NewConversationHandler,
		handler.NewMemoryHandler,
		handler.NewSessionHandler,
		newRouter,
	}

	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("failed to build container: %w", err)
		}
	}
	return c, nil
}

func newDB(cfg *config.Config) (*gorm.DB, error) {
	return postgres.Open(context.Background(), cfg.Postgres)
}

func newRedisClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newCache(cfg *config.Config, rdb *goredis.Client) interfaces.Cache {
	return redis.NewCache(rdb, cfg.Redis.Timeout)
}

func newSessionStore(cfg *config.Config, rdb *goredis.Client) interfaces.SessionService {
	return redis.NewSessionStore(rdb, cfg.Memory.SessionTTL)
}

func newGraphStore(cfg *config.Config) (interfaces.GraphStore, error) {
	if !cfg.Neo4j.Enabled {
		logger.Info(context.Background(), "graph store disabled, recall will run vector-only")
		return graph.NewDisabledStore(), nil
	}
	driver, err := neo4j.NewDriver(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return graphneo4j.NewGraphStore(driver, cfg.Neo4j.Timeout), nil
}

func newBlobStore(cfg *config.Config) (interfaces.BlobStore, error) {
	return file.NewBlobStore(cfg.Blob)
}

func newVectorIndex(cfg *config.Config, db *gorm.DB) (interfaces.VectorIndex, error) {
	switch cfg.Vector.Driver {
	case "pgvector":
		return pgvector.NewVectorIndex(db, cfg.Vector.Timeout), nil
	case "milvus":
		mc, err := client.New(context.Background(), &client.ClientConfig{
			Address: cfg.Vector.Milvus.Address,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to milvus: %w", err)
		}
		return milvusindex.NewVectorIndex(mc, cfg.Vector.Milvus, cfg.Vector.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown vector index driver: %s", cfg.Vector.Driver)
	}
}

func newEmbeddingClient(cfg *config.Config, cache interfaces.Cache) (interfaces.EmbeddingClient, error) {
	var upstream interfaces.EmbeddingClient
	switch cfg.Embedding.Provider {
	case "openai":
		upstream = embedding.NewOpenAIClient(cfg.Embedding)
	case "ollama":
		var err error
		upstream, err = embedding.NewOllamaClient(cfg.Embedding)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
	return embedding.NewCachedClient(upstream, cache, cfg.Embedding.CacheTTL, cfg.Embedding.Dimension), nil
}

func newExtractor(cfg *config.Config) interfaces.FactExtractor {
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey != "" {
		oc := openai.NewClient(cfg.Embedding.APIKey)
		return extractor.NewLLMExtractor(oc, openai.GPT4oMini)
	}
	return extractor.NewKeywordExtractor()
}

func newClusterService(cfg *config.Config, repo interfaces.ClusterRepository) interfaces.ClusterService {
	return cluster.NewService(repo, cfg.Memory.ClusterThreshold)
}

func newIngestService(
	cfg *config.Config,
	conversations interfaces.ConversationRepository,
	messages interfaces.MessageRepository,
	facts interfaces.FactRepository,
	clusters interfaces.ClusterService,
	sessions interfaces.SessionService,
	embedder interfaces.EmbeddingClient,
	index interfaces.VectorIndex,
	graphStore interfaces.GraphStore,
	factExtractor interfaces.FactExtractor,
) interfaces.IngestService {
	return ingest.NewService(conversations, messages, facts, clusters, sessions,
		embedder, index, graphStore, factExtractor, cfg.Memory.BackfillBatchSize)
}

func newRouter(
	cfg *config.Config,
	conversations *handler.ConversationHandler,
	memory *handler.MemoryHandler,
	sessions *handler.SessionHandler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	return handler.NewRouter(conversations, memory, sessions)
}
