package kvstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyPrefix namespaces cart keys in shared Redis instances.
const KeyPrefix = "checkout:"

// Open connects the store named by kind: memory, redis or postgres. The
// returned close function releases the underlying connections.
func Open(ctx context.Context, kind, redisURL, databaseURL string) (Store, func(), error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), func() {}, nil

	case "redis":
		rs, err := NewRedisStoreFromURL(ctx, redisURL, KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		ps := NewPostgresStore(pool)
		if err := ps.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return ps, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", kind)
}
