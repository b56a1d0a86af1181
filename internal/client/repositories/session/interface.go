// Package session persists the CLI's login state (tokens and username) in a
// small key/value table of the local SQLite database.
package session

import (
	"context"
)

// Keys stored by the CLI.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserName     = "username"
)

// Repository is a string key/value store. Get returns (nil, nil) for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
