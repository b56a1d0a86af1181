package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/common"
)

// AuthService registers users and manages the stored session.
type AuthService struct {
	api     API
	session *Session
}

func NewAuthService(api API, s *Session) *AuthService {
	return &AuthService{api: api, session: s}
}

func (a *AuthService) Register(ctx context.Context, username string, password []byte) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return "", fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}
	return a.api.Register(ctx, username, string(password))
}

// Login authenticates and stores the issued token pair.
func (a *AuthService) Login(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}

	tokens, err := a.api.Login(ctx, username, string(password))
	if err != nil {
		return err
	}
	if err := a.session.Save(ctx, tokens, username); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. A rejected or
// expired refresh token clears the session.
func (a *AuthService) Refresh(ctx context.Context) error {
	rt, err := a.session.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if rt == "" {
		return client.ErrNotLoggedIn
	}

	tokens, err := a.api.Refresh(ctx, rt)
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenExpired) || errors.Is(err, common.ErrorUnauthorized) {
			_ = a.session.Clear(ctx)
		}
		return err
	}
	return a.session.Save(ctx, tokens, "")
}

func (a *AuthService) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

// WhoAmI returns the stored username, or client.ErrNotLoggedIn.
func (a *AuthService) WhoAmI(ctx context.Context) (string, error) {
	name, err := a.session.UserName(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", client.ErrNotLoggedIn
	}
	return name, nil
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.api.Health(ctx)
}
