// Package receipts provides the PostgreSQL implementation of the receipt
// metadata index.
package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/dbx"
	"github.com/dmitrijs2005/receiptvault/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the receipt row followed by one metadata row per key,
// in key order.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.Receipt) error {
	query := `
		INSERT INTO receipts (id, filename, content_type, length, sha256, storage_key, uploaded_by, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var uploader any
	if rec.UploaderID != "" {
		uploader = rec.UploaderID
	}
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Filename, rec.ContentType, rec.Length, rec.SHA256, rec.StorageKey, uploader, rec.UploadDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	metaQuery := `INSERT INTO receipt_metadata (receipt_id, key, value) VALUES ($1, $2, $3)`
	for _, k := range keys {
		if _, err := r.db.ExecContext(ctx, metaQuery, rec.ID, k, rec.Metadata[k]); err != nil {
			return fmt.Errorf("db error: metadata %q: %w", k, err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Receipt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, filename, content_type, length, sha256, storage_key, COALESCE(uploaded_by::text, ''), upload_date
		FROM receipts
		WHERE id = $1
	`
	rec := &models.Receipt{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Filename, &rec.ContentType, &rec.Length, &rec.SHA256, &rec.StorageKey, &rec.UploaderID, &rec.UploadDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.UploadDate = rec.UploadDate.UTC()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM receipt_metadata WHERE receipt_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select metadata: %w", err)
	}
	defer rows.Close()

	rec.Metadata = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		rec.Metadata[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}
