// Package bootstrap assembles the retrieval engine from configuration.
package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/config"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/kbsearch/internal/db/redis"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
	searchrepo "github.com/kailas-cloud/kbsearch/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/kbsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/kbsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
)

// App holds the wired engine and the resources it owns.
type App struct {
	Store     db.Store
	Embedder  domain.Embedder
	Retrieval *retrieval.Service
	Health    *healthuc.Service
}

// New wires store, embedder, ranker and services. It does not wait for the store.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	app, err := newWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

func newWithStore(cfg *config.Config, store db.Store, logger *zap.Logger) (*App, error) {
	emb := NewEmbedder(cfg.Embedding, logger)

	repo := searchrepo.New(store, searchrepo.Config{
		Collection:  cfg.Database.Collection,
		Backend:     cfg.Database.Driver,
		VectorNames: vectorNames(cfg.Database.VectorNames),
	})

	ranker, err := retrieval.NewRanker(
		strategy.Strategy(cfg.Retrieval.Strategy), repo,
		WeightedConfig(cfg.Retrieval.Weighted), CascadeConfig(cfg.Retrieval.Cascade),
	)
	if err != nil {
		return nil, fmt.Errorf("build ranker: %w", err)
	}

	svc := retrieval.New(emb, ranker,
		retrieval.WithTimeout(time.Duration(cfg.Retrieval.TimeoutMs)*time.Millisecond),
		retrieval.WithTopN(cfg.Retrieval.TopN),
	)

	var checker healthuc.EmbeddingChecker
	if hc, ok := emb.(healthuc.EmbeddingChecker); ok {
		checker = hc
	}

	logger.Info("retrieval engine wired",
		zap.String("driver", cfg.Database.Driver),
		zap.String("collection", cfg.Database.Collection),
		zap.String("strategy", ranker.Strategy().String()),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("top_n", cfg.Retrieval.TopN),
		zap.Int("timeout_ms", cfg.Retrieval.TimeoutMs),
	)

	return &App{
		Store:     store,
		Embedder:  emb,
		Retrieval: svc,
		Health:    healthuc.New(store, checker),
	}, nil
}

// Close releases the store connection.
func (a *App) Close() {
	a.Store.Close()
}

// OpenStore connects to the configured vector index.
func OpenStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverQdrant:
		if len(cfg.Addrs) == 0 {
			return nil, fmt.Errorf("qdrant: addr is required")
		}
		s, err := qdrant.NewStore(qdrant.Config{
			Addr:   cfg.Addrs[0],
			APIKey: cfg.APIKey,
			TLS:    cfg.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("open qdrant store: %w", err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewEmbedder builds the query embedder chain:
// instruction -> rate limit -> instrumentation -> provider.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		User:       cfg.User,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
	var emb domain.Embedder = embeddinguc.NewInstrumentedEmbedder(provider, cfg.Provider, cfg.Model, logger)
	emb = embeddinguc.NewRateLimitedEmbedder(emb, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return domain.NewInstructionEmbedder(emb, cfg.QueryInstruction)
}

// WeightedConfig converts the YAML section into ranker settings.
func WeightedConfig(c config.WeightedConfig) retrieval.WeightedConfig {
	return retrieval.WeightedConfig{
		Weights: retrieval.Weights{
			Title:   c.Weights.Title,
			Summary: c.Weights.Summary,
			Chunk:   c.Weights.Chunk,
		},
		TitleLimit:   c.TitleLimit,
		SummaryLimit: c.SummaryLimit,
		ChunkLimit:   c.ChunkLimit,
		AllowPartial: c.AllowPartial,
	}
}

// CascadeConfig converts the YAML section into ranker settings.
func CascadeConfig(c config.CascadeConfig) retrieval.CascadeConfig {
	return retrieval.CascadeConfig{
		TitleLimit:   c.TitleLimit,
		SummaryLimit: c.SummaryLimit,
		SummaryKeep:  c.SummaryKeep,
		ChunkLimit:   c.ChunkLimit,
		ChunkKeep:    c.ChunkKeep,
		TitleKey:     c.TitleKey,
		SummaryKey:   c.SummaryKey,
	}
}

func vectorNames(m map[string]string) map[field.Field]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[field.Field]string, len(m))
	for k, v := range m {
		out[field.Field(k)] = v
	}
	return out
}
