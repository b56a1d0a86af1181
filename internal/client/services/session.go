package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/client/repositories/session"
	"github.com/dmitrijs2005/receiptvault/internal/dbx"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

// Session is the login state kept in the local database between runs.
type Session struct {
	db *sql.DB
}

func NewSession(db *sql.DB) *Session {
	return &Session{db: db}
}

func (s *Session) repo() session.Repository {
	return session.NewSQLiteRepository(s.db)
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.repo().Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// AccessToken is a client.TokenSource. It fails with client.ErrNotLoggedIn
// when no token is stored.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.get(ctx, session.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", client.ErrNotLoggedIn
	}
	return tok, nil
}

func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, session.KeyRefreshToken)
}

func (s *Session) UserName(ctx context.Context) (string, error) {
	return s.get(ctx, session.KeyUserName)
}

// Save stores a token pair, and the username when it is not empty, in one
// transaction.
func (s *Session) Save(ctx context.Context, tokens *wire.TokenResponse, userName string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := session.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, session.KeyAccessToken, []byte(tokens.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, session.KeyRefreshToken, []byte(tokens.RefreshToken)); err != nil {
			return err
		}
		if userName != "" {
			return repo.Set(ctx, session.KeyUserName, []byte(userName))
		}
		return nil
	})
}

func (s *Session) Clear(ctx context.Context) error {
	return s.repo().Clear(ctx)
}
