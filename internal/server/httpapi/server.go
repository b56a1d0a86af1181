// Package httpapi exposes the receipt and auth services over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/logging"
	"github.com/dmitrijs2005/receiptvault/internal/server/models"
	"github.com/dmitrijs2005/receiptvault/internal/server/services"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
	"github.com/gorilla/mux"
)

// UserService is the auth collaborator used by the auth routes.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// ReceiptService is the receipt store used by the receipt routes.
type ReceiptService interface {
	Put(ctx context.Context, req services.PutRequest) (string, error)
	GetMetadata(ctx context.Context, id string) (*services.ReceiptInfo, error)
	GetBinary(ctx context.Context, id string) (io.ReadCloser, *services.ReceiptInfo, error)
	GetDownloadURL(ctx context.Context, id string) (*services.DownloadLink, error)
}

// Options tune the HTTP server.
type Options struct {
	MaxUploadSize   int64
	ShutdownTimeout time.Duration
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

type HTTPServer struct {
	address   string
	logger    logging.Logger
	users     UserService
	receipts  ReceiptService
	jwtSecret []byte
	opts      Options
}

func NewHTTPServer(a string, l logging.Logger, us UserService, rs ReceiptService, secretKey string, opts Options) *HTTPServer {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		receipts:  rs,
		jwtSecret: []byte(secretKey),
		opts:      opts,
	}
}

// Handler builds the router.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc(wire.PathHealth, s.health).Methods(http.MethodGet)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", s.register).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.refresh).Methods(http.MethodPost)

	receipts := r.PathPrefix(wire.PathReceipts).Subrouter()
	receipts.Use(s.requireBearer)
	receipts.HandleFunc("", s.uploadReceipt).Methods(http.MethodPost)
	receipts.HandleFunc("/{id}", s.getReceipt).Methods(http.MethodGet)
	receipts.HandleFunc("/{id}"+wire.FileSuffix, s.downloadReceipt).Methods(http.MethodGet)
	receipts.HandleFunc("/{id}"+wire.LinkSuffix, s.receiptLink).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusNotFound, wire.ErrorResponse{Message: "no such route", Code: wire.CodeNotFound})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, wire.ErrorResponse{Message: "method not allowed", Code: wire.CodeValidation})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		timeout := s.opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
