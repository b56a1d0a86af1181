// Package services holds the CLI's application logic on top of the HTTP
// client: the persisted login session, authentication, and receipt
// operations with a single token refresh on expiry.
package services

import (
	"context"
	"io"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

// API is the subset of client.HTTPClient the services use.
type API interface {
	Health(ctx context.Context) error
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*wire.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*wire.TokenResponse, error)
	UploadReceipt(ctx context.Context, req client.UploadRequest) (string, error)
	GetMetadata(ctx context.Context, id string) (*wire.ReceiptMetadata, error)
	DownloadReceipt(ctx context.Context, id string, w io.Writer) (int64, error)
	GetDownloadURL(ctx context.Context, id string) (*wire.DownloadLink, error)
}

var _ API = (*client.HTTPClient)(nil)
