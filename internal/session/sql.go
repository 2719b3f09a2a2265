package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

const createSessionTable = `
	CREATE TABLE IF NOT EXISTS dashboard_session (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// SQLStore keeps the session as rows of dashboard_session(key, value).
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ConnectPostgres opens the database and makes sure the session table exists.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createSessionTable); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}
	return nil
}

type sessionRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (s *SQLStore) Token(ctx context.Context) (string, error) {
	var tok string
	err := s.db.GetContext(ctx, &tok, `SELECT value FROM dashboard_session WHERE key = $1`, KeyToken)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	return tok, nil
}

func (s *SQLStore) Load(ctx context.Context) (Session, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT key, value FROM dashboard_session WHERE key IN ($1, $2)`, KeyToken, KeyUser)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var out Session
	for _, row := range rows {
		switch row.Key {
		case KeyToken:
			out.Token = row.Value
		case KeyUser:
			if out.User, err = decodeUser([]byte(row.Value)); err != nil {
				return Session{}, err
			}
		}
	}
	return out, nil
}

func (s *SQLStore) Save(ctx context.Context, token string, user *model.Identity) error {
	raw, err := encodeUser(user)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO dashboard_session (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := tx.ExecContext(ctx, upsert, KeyToken, token); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	if raw != nil {
		if _, err := tx.ExecContext(ctx, upsert, KeyUser, string(raw)); err != nil {
			return fmt.Errorf("save session user: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM dashboard_session WHERE key = $1`, KeyUser); err != nil {
		return fmt.Errorf("save session user: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_session WHERE key IN ($1, $2)`, KeyToken, KeyUser)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
