// Package qdrant implements db.Store over Qdrant's gRPC API.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// pointsSearcher is the slice of pb.PointsClient the store needs.
type pointsSearcher interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// healthChecker is the slice of pb.QdrantClient the store needs.
type healthChecker interface {
	HealthCheck(ctx context.Context, in *pb.HealthCheckRequest, opts ...grpc.CallOption) (*pb.HealthCheckReply, error)
}

// Config holds connection parameters for a Qdrant store.
type Config struct {
	Addr   string // host:port of the gRPC endpoint (6334 by default)
	APIKey string
	TLS    bool
}

// Store is the sole owner of Qdrant reads.
type Store struct {
	conn   *grpc.ClientConn
	points pointsSearcher
	health healthChecker
}

// NewStore creates a Store connected to Qdrant at cfg.Addr.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", cfg.Addr, err)
	}

	return &Store{
		conn:   conn,
		points: pb.NewPointsClient(conn),
		health: pb.NewQdrantClient(conn),
	}, nil
}

// apiKeyInterceptor attaches the api-key header Qdrant Cloud expects on every call.
func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
	) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Ping checks connectivity via the Qdrant health RPC.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.health.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// SearchField runs a similarity search over one named vector with an optional keyword match.
func (s *Store) SearchField(ctx context.Context, q *db.FieldQuery) (*db.SearchResult, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	req := &pb.SearchPoints{
		CollectionName: q.Collection,
		Vector:         q.Vector,
		Limit:          uint64(q.Limit),
		WithPayload:    payloadSelector(q),
	}
	if q.VectorName != "" {
		name := q.VectorName
		req.VectorName = &name
	}
	if !q.Filter.IsEmpty() {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch(q.Filter)}}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%s: %w", q.Collection, db.ErrCollectionNotFound)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		entries = append(entries, db.SearchEntry{
			ID:      pointID(p.GetId()),
			Score:   float64(p.GetScore()),
			Payload: payloadToMap(p.GetPayload()),
		})
	}
	return &db.SearchResult{Entries: entries}, nil
}

func validate(q *db.FieldQuery) error {
	if q.Collection == "" {
		return fmt.Errorf("collection is required: %w", db.ErrInvalidQuery)
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("vector is required: %w", db.ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive: %w", db.ErrInvalidQuery)
	}
	return nil
}

func payloadSelector(q *db.FieldQuery) *pb.WithPayloadSelector {
	if !q.WithPayload {
		return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false}}
	}
	if len(q.PayloadFields) == 0 {
		return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
	}
	return &pb.WithPayloadSelector{
		SelectorOptions: &pb.WithPayloadSelector_Include{
			Include: &pb.PayloadIncludeSelector{Fields: q.PayloadFields},
		},
	}
}

func fieldMatch(m filter.Match) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: m.Key(),
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: m.Value()},
				},
			},
		},
	}
}

// pointID renders UUID ids as-is and numeric ids in decimal.
func pointID(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
