package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix is the key prefix of precomputed neighbour tables.
const DefaultRedisPrefix = "nn:"

// RedisIndex serves neighbour tables precomputed offline and stored as Redis
// sorted sets: key "<prefix><word>", member = neighbour, score = similarity.
type RedisIndex struct {
	client *redis.Client
	prefix string
}

// NewRedisIndex connects to Redis and verifies the connection.
//
// Args:
//   - addr: Redis address (e.g., "localhost:6379")
//   - password: Redis password (empty string if none)
//   - db: Redis database number
//   - prefix: key prefix, DefaultRedisPrefix when empty
func NewRedisIndex(addr, password string, db int, prefix string) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis connection failed: %v", ErrArtifactUnavailable, err)
	}

	return NewRedisIndexFromClient(client, prefix), nil
}

// NewRedisIndexFromClient wraps an existing client.
func NewRedisIndexFromClient(client *redis.Client, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisIndex{client: client, prefix: prefix}
}

// Neighbors implements NeighborIndex.
func (r *RedisIndex) Neighbors(ctx context.Context, word string, k int) ([]Neighbor, error) {
	if k <= 0 {
		k = DefaultNeighbors
	}

	hits, err := r.client.ZRevRangeWithScores(ctx, r.prefix+word, 0, int64(k-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZREVRANGE failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrOutOfVocabulary
	}

	out := make([]Neighbor, 0, len(hits))
	for _, z := range hits {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Word: member, Score: z.Score})
	}
	return out, nil
}

// Store writes the neighbour table for word, replacing any previous one. Used
// by the offline job that precomputes tables from a VecIndex.
func (r *RedisIndex) Store(ctx context.Context, word string, neighbors []Neighbor) error {
	key := r.prefix + word
	members := make([]*redis.Z, 0, len(neighbors))
	for _, n := range neighbors {
		members = append(members, &redis.Z{Score: n.Score, Member: n.Word})
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
