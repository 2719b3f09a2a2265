package session

import (
	"context"
	"fmt"
	"io"

	"github.com/jwalitptl/leukemia-dashboard/internal/config"
	"github.com/jwalitptl/leukemia-dashboard/pkg/security"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend selected by cfg. The returned closer releases any
// connection the backend holds.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		var opts []FileOption
		if cfg.EncryptionKey != "" {
			key, err := security.KeyFromPassphrase(cfg.EncryptionKey)
			if err != nil {
				return nil, nil, err
			}
			sealer, err := security.NewAESSealer(key)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, WithSealer(sealer))
		}
		return NewFileStore(cfg.Path, opts...), nopCloser{}, nil
	case config.BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case config.BackendRedis:
		client, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.RedisPrefix), client, nil
	case config.BackendPostgres:
		db, err := ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
