// Package receipts declares the metadata index for stored receipts.
package receipts

import (
	"context"

	"github.com/dmitrijs2005/receiptvault/internal/server/models"
)

// Repository persists receipt rows and their key/value metadata.
//
// Create writes several rows and must run inside a transaction
// (see dbx.WithTx) so a receipt is never visible half-written.
type Repository interface {
	Create(ctx context.Context, r *models.Receipt) error
	// GetByID returns common.ErrorNotFound for unknown or malformed ids.
	GetByID(ctx context.Context, id string) (*models.Receipt, error)
}
