package kbsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/bootstrap"
	"github.com/kailas-cloud/kbsearch/internal/config"
	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain/knowledge"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
	searchrepo "github.com/kailas-cloud/kbsearch/internal/repository/search"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// retrievalUseCase is the internal interface for retrieval, swapped in tests.
type retrievalUseCase interface {
	Retrieve(ctx context.Context, query string) ([]knowledge.Record, error)
	Strategy() strategy.Strategy
}

// Client is the kbsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	retrieval retrievalUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the index.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("kbsearch: index address required (use WithQdrant or WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("kbsearch: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("kbsearch: index not ready: %w", err)
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	s, err := bootstrap.OpenStore(config.DatabaseConfig{
		Driver:    cfg.driver,
		Addrs:     cfg.addrs,
		APIKey:    cfg.apiKey,
		TLS:       cfg.tls,
		Password:  cfg.password,
		KeyPrefix: cfg.keyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("kbsearch: %w", err)
	}
	return s, nil
}

// rankerSettings overlays client options on the engine defaults.
func rankerSettings(cfg *clientConfig) (retrieval.WeightedConfig, retrieval.CascadeConfig) {
	w := retrieval.DefaultWeightedConfig()
	if cfg.weights != nil {
		w.Weights = retrieval.Weights{Title: cfg.weights.Title, Summary: cfg.weights.Summary, Chunk: cfg.weights.Chunk}
	}
	w.AllowPartial = cfg.allowPartial
	return w, retrieval.DefaultCascadeConfig()
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	repo := searchrepo.New(store, searchrepo.Config{
		Collection: cfg.collection,
		Backend:    cfg.driver,
	})

	weighted, cascade := rankerSettings(cfg)
	ranker, err := retrieval.NewRanker(strategy.Strategy(cfg.strategy), repo, weighted, cascade)
	if err != nil {
		return nil, fmt.Errorf("kbsearch: %w", err)
	}

	var svcOpts []retrieval.Option
	if cfg.timeout > 0 {
		svcOpts = append(svcOpts, retrieval.WithTimeout(cfg.timeout))
	}
	if cfg.topN > 0 {
		svcOpts = append(svcOpts, retrieval.WithTopN(cfg.topN))
	}

	emb := &embedderAdapter{inner: cfg.embedder}
	return &Client{
		store:     store,
		retrieval: retrieval.New(emb, ranker, svcOpts...),
		healthSvc: healthuc.New(store, emb),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Strategy reports the fusion strategy in use.
func (c *Client) Strategy() Strategy {
	return Strategy(c.retrieval.Strategy())
}

// Retrieve returns the top records for query in rank order.
// An empty result is not an error.
func (c *Client) Retrieve(ctx context.Context, query string) (records []Record, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	rs, err := c.retrieval.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return fromRecords(rs), nil
}

// Context retrieves records for query and renders them as one grounding block.
func (c *Client) Context(ctx context.Context, query string) (string, error) {
	records, err := c.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatContext(records), nil
}

// FormatContext renders records as the grounding block handed to an answer generator.
func FormatContext(records []Record) string {
	return knowledge.FormatContext(toRecords(records))
}
