package cart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix    = "cart:"
	redisPingTimeout  = 1 * time.Second
	redisTxMaxRetries = 10
)

var ErrConflict = errors.New("cart update conflict")

// RedisStore keeps each session's cart as one JSON value. Updates run in a
// WATCH/MULTI transaction and are retried when another writer wins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// OpenRedis accepts a redis:// URL or a bare host:port.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Cart, error) {
	c, err := load(ctx, s.client, redisKey(sessionID))
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, op Op) (Cart, error) {
	_, next, err := s.apply(ctx, sessionID, op)
	return next, err
}

func (s *RedisStore) Take(ctx context.Context, sessionID string) (Cart, error) {
	before, _, err := s.apply(ctx, sessionID, Clear{})
	return before, err
}

// apply runs op against the stored cart and reports the cart on both sides
// of the write.
func (s *RedisStore) apply(ctx context.Context, sessionID string, op Op) (before, after Cart, err error) {
	key := redisKey(sessionID)

	for attempt := 0; attempt < redisTxMaxRetries; attempt++ {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := load(ctx, tx, key)
			if err != nil {
				return err
			}

			before = cur
			after = Apply(cur, op)
			data, err := json.Marshal(after)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(after) == 0 {
					pipe.Del(ctx, key)
					return nil
				}
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return before, after, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, nil, errors.Wrapf(err, "%s cart", op.Name())
		}
	}
	return nil, nil, errors.Wrapf(ErrConflict, "%s cart", op.Name())
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (Cart, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return nil, err
	}

	var out Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if out == nil {
		out = Cart{}
	}
	return out, nil
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}
