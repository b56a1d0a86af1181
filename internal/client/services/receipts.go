package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/receiptvault/internal/client/client"
	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/filex"
	"github.com/dmitrijs2005/receiptvault/internal/netx"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

// ReceiptService runs receipt operations for the logged-in user. An
// access-token expiry triggers one refresh and one retry.
type ReceiptService struct {
	api  API
	auth *AuthService
}

func NewReceiptService(api API, auth *AuthService) *ReceiptService {
	return &ReceiptService{api: api, auth: auth}
}

var fetchPresigned = netx.DownloadFromPresignedURL

func (s *ReceiptService) withRefresh(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, common.ErrTokenExpired) {
		return err
	}
	if rerr := s.auth.Refresh(ctx); rerr != nil {
		return rerr
	}
	return fn()
}

// Upload sends the PDF at path with the given metadata and returns the new
// receipt ID. metadata must contain orderId.
func (s *ReceiptService) Upload(ctx context.Context, path string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(metadata[common.MetaOrderID]) == "" {
		return "", fmt.Errorf("%w: order id is required", common.ErrorValidation)
	}

	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", common.ErrorValidation, path)
	}
	if st.Size() == 0 {
		return "", fmt.Errorf("%w: %s is empty", common.ErrorValidation, path)
	}

	var id string
	err = s.withRefresh(ctx, func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		id, err = s.api.UploadReceipt(ctx, client.UploadRequest{
			Filename: filepath.Base(path),
			Content:  f,
			Metadata: metadata,
		})
		return err
	})
	return id, err
}

func (s *ReceiptService) Metadata(ctx context.Context, id string) (*wire.ReceiptMetadata, error) {
	var m *wire.ReceiptMetadata
	err := s.withRefresh(ctx, func() (err error) {
		m, err = s.api.GetMetadata(ctx, id)
		return err
	})
	return m, err
}

// Download saves the receipt to outPath, or to its original filename in the
// current directory when outPath is empty. The file only appears once the
// whole body has arrived. It returns the path written and the byte count.
func (s *ReceiptService) Download(ctx context.Context, id, outPath string) (string, int64, error) {
	if outPath == "" {
		m, err := s.Metadata(ctx, id)
		if err != nil {
			return "", 0, err
		}
		outPath = localName(id, m.Filename)
	}

	var n int64
	err := s.withRefresh(ctx, func() error {
		pr, pw := io.Pipe()
		go func() {
			_, err := s.api.DownloadReceipt(ctx, id, pw)
			pw.CloseWithError(err)
		}()

		var err error
		n, err = filex.WriteFileAtomic(outPath, pr)
		pr.CloseWithError(err)
		return err
	})
	if err != nil {
		return "", 0, err
	}
	return outPath, n, nil
}

// localName picks a file name in the current directory for a receipt whose
// stored filename may carry directories. Names that do not resolve to a
// plain file fall back to <id>.pdf.
func localName(id, filename string) string {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(filename, `\`, "/")))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return filepath.Base(id) + ".pdf"
	}
	return base
}

func (s *ReceiptService) Link(ctx context.Context, id string) (*wire.DownloadLink, error) {
	var l *wire.DownloadLink
	err := s.withRefresh(ctx, func() (err error) {
		l, err = s.api.GetDownloadURL(ctx, id)
		return err
	})
	return l, err
}

// FetchLink downloads the receipt straight from object storage through a
// presigned link, bypassing the API server for the bytes.
func (s *ReceiptService) FetchLink(ctx context.Context, id, outPath string) (int64, error) {
	l, err := s.Link(ctx, id)
	if err != nil {
		return 0, err
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := fetchPresigned(ctx, l.URL, pw)
		pw.CloseWithError(err)
	}()

	n, err := filex.WriteFileAtomic(outPath, pr)
	pr.CloseWithError(err)
	return n, err
}
