package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/pkg/security"
)

// FileStore persists the session as a JSON document keyed by KeyToken and
// KeyUser. Writes go through a temp file and rename so a crash never leaves
// a truncated session behind.
type FileStore struct {
	path   string
	sealer security.Sealer
	mu     sync.Mutex
}

type FileOption func(*FileStore)

// WithSealer encrypts the document on disk.
func WithSealer(s security.Sealer) FileOption {
	return func(f *FileStore) { f.sealer = s }
}

func NewFileStore(path string, opts ...FileOption) *FileStore {
	f := &FileStore{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileStore) Token(ctx context.Context) (string, error) {
	s, err := f.Load(ctx)
	return s.Token, err
}

func (f *FileStore) Load(_ context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return Session{}, nil
	}
	if f.sealer != nil {
		if raw, err = f.sealer.Open(raw); err != nil {
			return Session{}, fmt.Errorf("decrypt session file: %w", err)
		}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}

	var s Session
	if tok, ok := doc[KeyToken]; ok {
		if err := json.Unmarshal(tok, &s.Token); err != nil {
			return Session{}, fmt.Errorf("decode session token: %w", err)
		}
	}
	if u, ok := doc[KeyUser]; ok && string(u) != "null" {
		if s.User, err = decodeUser(u); err != nil {
			return Session{}, err
		}
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, token string, user *model.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := map[string]interface{}{KeyToken: token}
	if user != nil {
		doc[KeyUser] = user
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if f.sealer != nil {
		if raw, err = f.sealer.Seal(raw); err != nil {
			return fmt.Errorf("encrypt session file: %w", err)
		}
	}
	return f.write(raw)
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) write(raw []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
