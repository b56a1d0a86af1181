package orders

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/receiptvault/internal/dbx"
)

// PostgresChecker reads the orders table shared with the shop backend.
type PostgresChecker struct {
	db dbx.DBTX
}

func NewPostgresChecker(db dbx.DBTX) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
