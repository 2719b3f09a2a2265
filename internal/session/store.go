package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

// Storage keys shared by every backend.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Session is the single active login: the bearer token and the identity
// fetched with it. A zero Session means nobody is signed in.
type Session struct {
	Token string          `json:"token,omitempty"`
	User  *model.Identity `json:"user,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store persists the session across process restarts. Reads of a missing
// session return the zero value, not an error.
type Store interface {
	Token(ctx context.Context) (string, error)
	Load(ctx context.Context) (Session, error)
	// Save replaces the active session. A nil user keeps only the token.
	Save(ctx context.Context, token string, user *model.Identity) error
	// Clear removes every persisted session key.
	Clear(ctx context.Context) error
}

func encodeUser(user *model.Identity) ([]byte, error) {
	if user == nil {
		return nil, nil
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode session user: %w", err)
	}
	return raw, nil
}

func decodeUser(raw []byte) (*model.Identity, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var user model.Identity
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &user, nil
}
