// ABOUTME: Redis-backed cache store: TTL'd JSON entries wrapped in a generation-stamped
// ABOUTME: envelope, with scan-by-prefix and degrade-to-miss error handling.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the redis connection. Timeouts and retries are bounded so
// that no cache operation can stall a request; exhausting retries surfaces an
// error the orchestrators translate into the compute-only path.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
	MaxRetries  int
}

// Store is the only component that talks to the external shared cache.
// All values are stored as JSON envelopes carrying their generation timestamp
// so eviction can order entries without knowing their concrete type.
type Store struct {
	rdb *redis.Client
	log *slog.Logger
}

// envelope wraps every stored value. GeneratedAt orders entries for eviction;
// a value that fails to deserialize is treated as generation time zero.
type envelope struct {
	GeneratedAt time.Time       `json:"generated_at"`
	TTLSeconds  int             `json:"ttl_seconds"`
	Value       json.RawMessage `json:"value"`
}

// New creates a Store with its own redis client.
func New(opts Options, log *slog.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		ReadTimeout: opts.ReadTimeout,
		MaxRetries:  opts.MaxRetries,
	})
	return &Store{rdb: rdb, log: log}
}

// NewWithClient wraps an existing redis client. Used by tests (miniredis).
func NewWithClient(rdb *redis.Client, log *slog.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

// Get loads the entry at key into dest. It returns (false, nil) on a miss.
// A malformed entry is treated as a miss and proactively deleted. A non-nil
// error means the backend itself is unreachable; callers degrade to direct
// computation rather than failing.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		err = json.Unmarshal(env.Value, dest)
	}
	if err != nil {
		s.log.Warn("malformed cache entry, deleting", "key", key, "error", err)
		_ = s.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// Set stores value at key with the given TTL, stamping the envelope with the
// current generation time.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	env := envelope{
		GeneratedAt: time.Now().UTC(),
		TTLSeconds:  int(ttl / time.Second),
		Value:       raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// Delete removes the given keys as one batch and returns the number deleted.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.rdb.Del(ctx, keys...).Result()
}

// ScanPrefix returns all live keys under prefix. SCAN is used rather than
// KEYS so large caches are walked incrementally without blocking the server.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// GeneratedAt reads only the envelope generation timestamp for key. Missing
// keys report ok=false; entries that fail to parse report the zero time so
// eviction deletes them first.
func (s *Store) GeneratedAt(ctx context.Context, key string) (time.Time, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return time.Time{}, !errors.Is(err, redis.Nil)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, true
	}
	return env.GeneratedAt, true
}

// Ping checks backend reachability and reports the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := s.rdb.Ping(ctx).Err()
	return time.Since(start), err
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
