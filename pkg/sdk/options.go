package kbsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "qdrant" or "redis"
	addrs     []string
	apiKey    string
	tls       bool
	password  string
	keyPrefix string

	collection string
	embedder   Embedder

	strategy     Strategy
	weights      *Weights
	allowPartial bool
	timeout      time.Duration
	topN         int

	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithQdrant configures the client to read from a Qdrant gRPC endpoint.
// apiKey may be empty for an unauthenticated instance.
func WithQdrant(addr, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.addrs = []string{addr}
		c.apiKey = apiKey
	})
}

// WithTLS enables transport security for Qdrant.
func WithTLS() Option {
	return optionFunc(func(c *clientConfig) {
		c.tls = true
	})
}

// WithRedis configures the client to read from Redis with the query engine.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Redis key prefix stripped from record IDs.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCollection sets the collection (Qdrant) or index (Redis) name.
// Defaults to PassportKnowledgeBase.
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithStrategy selects the fusion strategy. Default: StrategyWeighted.
func WithStrategy(s Strategy) Option {
	return optionFunc(func(c *clientConfig) {
		c.strategy = s
	})
}

// WithWeights overrides the per-field weights of StrategyWeighted.
// Default: title 0.9, summary 0.05, chunk 0.05.
func WithWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = &w
	})
}

// WithAllowPartial lets StrategyWeighted fuse the fields that answered
// when another field search fails. Timeouts still fail the call.
func WithAllowPartial() Option {
	return optionFunc(func(c *clientConfig) {
		c.allowPartial = true
	})
}

// WithTimeout bounds each Retrieve call. Zero relies on the caller's context only.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithTopN sets how many records Retrieve returns. Default: 3.
func WithTopN(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topN = n
	})
}

// WithReadinessTimeout bounds the initial connectivity check in New. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
