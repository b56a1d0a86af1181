package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/cryptox"
	"github.com/dmitrijs2005/receiptvault/internal/dbx"
	"github.com/dmitrijs2005/receiptvault/internal/logging"
	"github.com/dmitrijs2005/receiptvault/internal/server/auth"
	"github.com/dmitrijs2005/receiptvault/internal/server/blobstore"
	sc "github.com/dmitrijs2005/receiptvault/internal/server/config"
	"github.com/dmitrijs2005/receiptvault/internal/server/models"
	"github.com/dmitrijs2005/receiptvault/internal/server/orders"
	"github.com/dmitrijs2005/receiptvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	defaultContentType = "application/pdf"
	orphanCleanupLimit = 30 * time.Second
)

// PutRequest is one receipt upload.
type PutRequest struct {
	Content     []byte
	Filename    string
	ContentType string
	Metadata    map[string]string
}

// ReceiptInfo is the public view of a stored receipt. The storage key and
// digest stay internal.
type ReceiptInfo struct {
	ID          string
	Filename    string
	ContentType string
	Length      int64
	UploadDate  time.Time
	Metadata    map[string]string
}

// DownloadLink is a presigned, time-limited URL for the receipt bytes.
type DownloadLink struct {
	URL       string
	ExpiresAt time.Time
}

// ReceiptService stores bank-transfer receipts. Bytes go to the blob store,
// everything else to the metadata index; a receipt exists once its index
// transaction has committed.
type ReceiptService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	blobs         blobstore.Store
	orders        orders.Checker
	presignExpiry time.Duration
	logger        logging.Logger
	now           func() time.Time
}

func NewReceiptService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store,
	checker orders.Checker, cfg *sc.Config, logger logging.Logger) *ReceiptService {
	return &ReceiptService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		orders:        checker,
		presignExpiry: cfg.PresignExpiry,
		logger:        logger.With("module", "receipts"),
		now:           time.Now,
	}
}

// NewStorageKey returns a fresh blob key of the form receipts/<y>/<m>/<d>/<uuid>.
func NewStorageKey(t time.Time) string {
	return fmt.Sprintf("receipts/%d/%d/%d/%v", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Put validates and stores a receipt and returns its id.
func (s *ReceiptService) Put(ctx context.Context, req PutRequest) (string, error) {
	caller, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return "", common.ErrorUnauthorized
	}

	meta, err := s.validate(ctx, req, caller)
	if err != nil {
		return "", err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	rec := &models.Receipt{
		ID:          uuid.NewString(),
		Filename:    strings.TrimSpace(req.Filename),
		ContentType: contentType,
		Length:      int64(len(req.Content)),
		SHA256:      cryptox.SHA256Hex(req.Content),
		StorageKey:  NewStorageKey(now),
		UploaderID:  caller.UserID,
		UploadDate:  now,
		Metadata:    meta,
	}

	if err := s.blobs.Put(ctx, rec.StorageKey, bytes.NewReader(req.Content), rec.Length, rec.ContentType); err != nil {
		s.discardBlob(ctx, rec.StorageKey)
		return "", fmt.Errorf("%w: write blob: %w", common.ErrorStorage, err)
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Receipts(tx).Create(ctx, rec); err != nil {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		s.discardBlob(ctx, rec.StorageKey)
		return "", fmt.Errorf("%w: index receipt: %w", common.ErrorStorage, err)
	}

	s.logger.Info(ctx, "receipt stored", "id", rec.ID, "orderId", meta[common.MetaOrderID], "length", rec.Length)
	return rec.ID, nil
}

func (s *ReceiptService) validate(ctx context.Context, req PutRequest, caller auth.Identity) (map[string]string, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: receipt content is empty", common.ErrorValidation)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}

	meta := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}

	orderID := strings.TrimSpace(meta[common.MetaOrderID])
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", common.ErrorValidation)
	}
	meta[common.MetaOrderID] = orderID

	if strings.TrimSpace(meta[common.MetaUploadedBy]) == "" {
		meta[common.MetaUploadedBy] = caller.UserName
	}

	exists, err := s.orders.OrderExists(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: order lookup: %w", common.ErrorInternal, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: order %q does not exist", common.ErrorValidation, orderID)
	}
	return meta, nil
}

// discardBlob removes a blob whose index row never committed. It runs on a
// context detached from the caller's cancellation.
func (s *ReceiptService) discardBlob(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanCleanupLimit)
	defer cancel()
	if err := s.blobs.Delete(cctx, key); err != nil {
		s.logger.Warn(ctx, "orphan blob left behind", "key", key, "error", err)
	}
}

func (s *ReceiptService) lookup(ctx context.Context, id string) (*models.Receipt, error) {
	if _, ok := auth.IdentityFromContext(ctx); !ok {
		return nil, common.ErrorUnauthorized
	}
	rec, err := s.repomanager.Receipts(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: read index: %w", common.ErrorStorage, err)
	}
	return rec, nil
}

// GetMetadata returns everything about a receipt except its bytes.
func (s *ReceiptService) GetMetadata(ctx context.Context, id string) (*ReceiptInfo, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInfo(rec), nil
}

// GetBinary opens the stored bytes. The reader yields exactly info.Length
// bytes and fails with cryptox.ErrDigestMismatch if the blob changed since
// upload. The caller closes it.
func (s *ReceiptService) GetBinary(ctx context.Context, id string) (io.ReadCloser, *ReceiptInfo, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, size, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobMissing) {
			s.logger.Error(ctx, "receipt blob missing", "id", id)
		}
		return nil, nil, fmt.Errorf("%w: read blob: %w", common.ErrorStorage, err)
	}
	if size != rec.Length {
		rc.Close()
		s.logger.Error(ctx, "receipt blob size mismatch", "id", id, "stored", size, "indexed", rec.Length)
		return nil, nil, fmt.Errorf("%w: blob is %d bytes, expected %d", common.ErrorStorage, size, rec.Length)
	}

	return cryptox.NewVerifyingReader(rc, rec.Length, rec.SHA256), toInfo(rec), nil
}

// GetDownloadURL presigns a direct download from the blob store. Backends
// that cannot presign yield ErrorUnsupported.
func (s *ReceiptService) GetDownloadURL(ctx context.Context, id string) (*DownloadLink, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	presigner, ok := s.blobs.(blobstore.Presigner)
	if !ok {
		return nil, common.ErrorUnsupported
	}
	url, exp, err := presigner.PresignGet(ctx, rec.StorageKey, s.presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %w", common.ErrorStorage, err)
	}
	return &DownloadLink{URL: url, ExpiresAt: exp}, nil
}

func toInfo(rec *models.Receipt) *ReceiptInfo {
	meta := make(map[string]string, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	return &ReceiptInfo{
		ID:          rec.ID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Length:      rec.Length,
		UploadDate:  rec.UploadDate,
		Metadata:    meta,
	}
}
