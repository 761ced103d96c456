package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"phagebox/host/pcr"
)

// RedisSink appends samples to a Redis stream per run
type RedisSink struct {
	client  *backend.Client
	owned   bool
	prefix  string
	session string
	maxLen  int64
}

type RedisOption func(*RedisSink)

// WithPrefix sets the stream key prefix
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisSink) {
		s.prefix = prefix
	}
}

// WithSession sets the run id instead of generating one
func WithSession(id string) RedisOption {
	return func(s *RedisSink) {
		s.session = id
	}
}

// WithMaxLen caps the stream length
func WithMaxLen(n int64) RedisOption {
	return func(s *RedisSink) {
		s.maxLen = n
	}
}

// NewRedisSink connects to addr ("host:port")
func NewRedisSink(addr string, opts ...RedisOption) *RedisSink {
	s := NewRedisSinkFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
	s.owned = true
	return s
}

// NewRedisSinkFromClient records through an existing client
func NewRedisSinkFromClient(client *backend.Client, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client:  client,
		prefix:  "phagebox:run:",
		session: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the run id
func (s *RedisSink) Session() string {
	return s.session
}

// Stream is the key samples are appended to
func (s *RedisSink) Stream() string {
	return s.prefix + s.session
}

// Ping checks the connection
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (s *RedisSink) Record(ctx context.Context, sample pcr.Sample) error {
	err := s.client.XAdd(ctx, &backend.XAddArgs{
		Stream: s.Stream(),
		MaxLen: s.maxLen,
		Values: map[string]any{
			"time":    sample.Time.UTC().Format(time.RFC3339Nano),
			"zone":    sample.Zone,
			"kind":    sample.Kind.String(),
			"celsius": strconv.FormatFloat(sample.Celsius, 'f', 2, 64),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.Stream(), err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
