// Package redisstore persists option group records as JSON strings in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-settings/pkg/state"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	prefix string
	ttl    time.Duration
}

// WithPrefix namespaces every key, e.g. "settings:".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTTL expires records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// Store is a state.Store backed by a Redis client.
type Store[T any] struct {
	client redis.UniversalClient
	opts   options
	now    func() time.Time
}

type envelope[T any] struct {
	Value T          `json:"value"`
	Meta  state.Meta `json:"meta"`
}

// New returns a Store using client.
func New[T any](client redis.UniversalClient, opts ...Option) *Store[T] {
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Store[T]{client: client, opts: cfg, now: time.Now}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Key returns the Redis key holding the record of ref.
func (s *Store[T]) Key(ref state.Ref) (string, error) {
	name, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return s.opts.prefix + name, nil
}

func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	key, err := s.Key(ref)
	if err != nil {
		return zero, state.Meta{}, false, err
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, state.Meta{}, false, nil
	}
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("redisstore: load %q: %w", key, err)
	}
	var record envelope[T]
	if err := json.Unmarshal(raw, &record); err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("redisstore: decode %q: %w", key, err)
	}
	return record.Value, record.Meta, true, nil
}

func (s *Store[T]) Save(ctx context.Context, ref state.Ref, snapshot T, meta state.Meta) (state.Meta, error) {
	key, err := s.Key(ref)
	if err != nil {
		return state.Meta{}, err
	}
	stamped := state.Stamp(meta, s.now())
	payload, err := json.Marshal(envelope[T]{Value: snapshot, Meta: stamped})
	if err != nil {
		return state.Meta{}, fmt.Errorf("redisstore: encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, s.opts.ttl).Err(); err != nil {
		return state.Meta{}, fmt.Errorf("redisstore: save %q: %w", key, err)
	}
	return stamped, nil
}

func (s *Store[T]) Delete(ctx context.Context, ref state.Ref) error {
	key, err := s.Key(ref)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %q: %w", key, err)
	}
	return nil
}
