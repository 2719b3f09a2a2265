package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

// RedisStore keeps the session under <prefix>:token and <prefix>:user so
// several workstations can share one login.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "leukemia:session"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects and pings before handing the client out.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(name string) string {
	return r.prefix + ":" + name
}

func (r *RedisStore) Token(ctx context.Context) (string, error) {
	tok, err := r.client.Get(ctx, r.key(KeyToken)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	return tok, nil
}

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	vals, err := r.client.MGet(ctx, r.key(KeyToken), r.key(KeyUser)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if tok, ok := vals[0].(string); ok {
		s.Token = tok
	}
	if raw, ok := vals[1].(string); ok {
		if s.User, err = decodeUser([]byte(raw)); err != nil {
			return Session{}, err
		}
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, token string, user *model.Identity) error {
	raw, err := encodeUser(user)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(KeyToken), token, 0)
		if raw != nil {
			pipe.Set(ctx, r.key(KeyUser), raw, 0)
		} else {
			pipe.Del(ctx, r.key(KeyUser))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(KeyToken), r.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
