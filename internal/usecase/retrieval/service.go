package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/knowledge"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

const tracerName = "github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"

// DefaultTopN is the number of records returned when no limit is configured.
const DefaultTopN = 3

// Service answers a free-text query with the best knowledge-base entries.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	embed   Embedder
	ranker  Ranker
	timeout time.Duration
	topN    int
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each Retrieve call, embedding included. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithTopN caps the number of returned records.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// New creates a retrieval service.
func New(embed Embedder, ranker Ranker, opts ...Option) *Service {
	s := &Service{
		embed:  embed,
		ranker: ranker,
		topN:   DefaultTopN,
		tracer: otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Strategy reports the fusion strategy in use.
func (s *Service) Strategy() strategy.Strategy { return s.ranker.Strategy() }

// Retrieve embeds query, fuses the three field rankings and returns at most
// topN records in rank order. Failures are reported through the domain sentinels;
// an elapsed deadline is ErrRetrievalTimeout and never yields partial results.
func (s *Service) Retrieve(ctx context.Context, query string) ([]knowledge.Record, error) {
	start := time.Now()
	strat := s.ranker.Strategy().String()
	log := logger.FromContext(ctx).With(zap.String("strategy", strat))

	records, err := s.retrieve(ctx, query)

	status := statusOf(err)
	metrics.RetrievalRequestsTotal.WithLabelValues(strat, status).Inc()
	metrics.RetrievalDuration.WithLabelValues(strat).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Warn("retrieval failed",
			zap.String("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	log.Info("retrieval completed",
		zap.Int("results", len(records)),
		zap.Duration("duration", time.Since(start)))
	return records, nil
}

func (s *Service) retrieve(ctx context.Context, query string) ([]knowledge.Record, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, err //nolint:wrapcheck // sentinel already attached
	}

	ctx, span := s.tracer.Start(ctx, "retrieval.Retrieve",
		trace.WithAttributes(attribute.String("retrieval.strategy", s.ranker.Strategy().String())))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	records, err := s.run(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(records)))
	return records, nil
}

func (s *Service) run(ctx context.Context, query string) ([]knowledge.Record, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, stageError(ctx, "embed query", err)
	}
	logger.FromContext(ctx).Debug("query embedded",
		zap.Int("dimensions", len(emb.Embedding)), zap.Int("tokens", emb.TotalTokens))

	ranked, err := s.ranker.Rank(ctx, emb.Embedding)
	if err != nil {
		return nil, stageError(ctx, "rank", err)
	}
	// Late results must not leak out once the deadline has passed.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, stageError(ctx, "rank", ctx.Err())
	}

	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}

	records, err := knowledge.Assemble(ranked)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return records, nil
}

// stageError maps deadline expiry to ErrRetrievalTimeout and wraps everything else.
func stageError(ctx context.Context, stage string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (%v)", stage, domain.ErrRetrievalTimeout, err) //nolint:errorlint // only the timeout sentinel is exposed
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, domain.ErrInvalidQuery):
		return metrics.StatusInvalidQuery
	case errors.Is(err, domain.ErrRetrievalTimeout):
		return metrics.StatusTimeout
	case errors.Is(err, context.Canceled):
		return metrics.StatusCanceled
	case errors.Is(err, domain.ErrEmbeddingService):
		return metrics.StatusEmbeddingError
	case errors.Is(err, domain.ErrRetrievalService):
		return metrics.StatusRetrievalError
	case errors.Is(err, domain.ErrPayloadFormat):
		return metrics.StatusPayloadError
	default:
		return metrics.StatusInternalError
	}
}

// NewRanker builds the ranker for strat.
func NewRanker(strat strategy.Strategy, s Searcher, weighted WeightedConfig, cascade CascadeConfig) (Ranker, error) {
	switch strat {
	case strategy.Weighted, "":
		return NewWeightedRanker(s, weighted), nil
	case strategy.Cascade:
		return NewCascadeRanker(s, cascade), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q: %w", strat, domain.ErrInvalidRequest)
	}
}
