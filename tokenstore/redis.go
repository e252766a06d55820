package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores the pair in two Redis string keys under a caller-chosen
// prefix, for deployments where several processes share one session (kiosk
// fleets, CLI plus daemon).
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis-backed store. prefix namespaces the keys
// ("<prefix>:access_token" / "<prefix>:refresh_token"); empty means "lumio".
// ttl bounds how long an untouched pair survives; zero keeps it forever.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("tokenstore: redis client required")
	}
	if prefix == "" {
		prefix = "lumio"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) accessKey() string  { return r.prefix + ":" + KeyAccessToken }
func (r *Redis) refreshKey() string { return r.prefix + ":" + KeyRefreshToken }

// Load implements [Store].
func (r *Redis) Load(ctx context.Context) (Pair, error) {
	values, err := r.client.MGet(ctx, r.accessKey(), r.refreshKey()).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var pair Pair
	if s, ok := values[0].(string); ok {
		pair.AccessToken = s
	}
	if s, ok := values[1].(string); ok {
		pair.RefreshToken = s
	}
	return pair, nil
}

// Save implements [Store]. Both keys are written in one pipeline so a
// concurrent Load never observes a token pair from two different sessions.
func (r *Redis) Save(ctx context.Context, pair Pair) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if pair.AccessToken == "" {
			pipe.Del(ctx, r.accessKey())
		} else {
			pipe.Set(ctx, r.accessKey(), pair.AccessToken, r.ttl)
		}
		if pair.RefreshToken == "" {
			pipe.Del(ctx, r.refreshKey())
		} else {
			pipe.Set(ctx, r.refreshKey(), pair.RefreshToken, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear implements [Store].
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.accessKey(), r.refreshKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
