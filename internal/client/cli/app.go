package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/client/config"
	"github.com/dmitrijs2005/receiptvault/internal/client/services"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

type authService interface {
	Register(ctx context.Context, username string, password []byte) (string, error)
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

type receiptService interface {
	Upload(ctx context.Context, path string, metadata map[string]string) (string, error)
	Metadata(ctx context.Context, id string) (*wire.ReceiptMetadata, error)
	Download(ctx context.Context, id, outPath string) (string, int64, error)
	Link(ctx context.Context, id string) (*wire.DownloadLink, error)
	FetchLink(ctx context.Context, id, outPath string) (int64, error)
}

type App struct {
	config   *config.Config
	auth     authService
	receipts receiptService
	db       *sql.DB
	reader   *bufio.Reader
	out      io.Writer
	errOut   io.Writer
}

// NewApp opens the session database and wires the API client.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, err
	}

	sess := services.NewSession(db)
	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, sess.AccessToken)
	as := services.NewAuthService(api, sess)
	rs := services.NewReceiptService(api, as)

	return &App{
		config:   c,
		auth:     as,
		receipts: rs,
		db:       db,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		errOut:   os.Stderr,
	}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
