// Package devservertest runs the backend emulator on an httptest server for
// client-side tests.
package devservertest

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/devserver"
	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

const DefaultPassword = "correct-horse-battery"

type Env struct {
	URL    string
	Server *devserver.Server
	seq    int32
}

// Start serves a fresh emulator until the test ends.
func Start(t testing.TB) *Env {
	t.Helper()
	srv := devserver.New(devserver.Config{
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
	}, logger.Nop())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &Env{URL: ts.URL + "/", Server: srv}
}

// Account seeds a new account and returns its email and token.
func (e *Env) Account(t testing.TB) (string, string) {
	t.Helper()
	n := atomic.AddInt32(&e.seq, 1)
	email := fmt.Sprintf("lab%d@example.org", n)
	_, token, err := e.Server.Seed(context.Background(), email, DefaultPassword, fmt.Sprintf("Lab %d", n))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return email, token
}

// Client returns an API client whose memory session holds token. An empty
// token gives an anonymous client.
func (e *Env) Client(t testing.TB, token string, opts ...client.Option) (*client.Client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	if token != "" {
		if err := store.Save(context.Background(), token, nil); err != nil {
			t.Fatalf("save session: %v", err)
		}
	}
	return client.New(client.Config{BaseURL: e.URL}, store, opts...), store
}

// SignedIn seeds an account and returns a client authenticated as it.
func (e *Env) SignedIn(t testing.TB, opts ...client.Option) (*client.Client, *session.MemoryStore) {
	t.Helper()
	_, token := e.Account(t)
	return e.Client(t, token, opts...)
}
