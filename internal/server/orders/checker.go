// Package orders answers whether an order exists. Orders belong to the shop
// backend; the receipt service only consults them before accepting an upload.
package orders

import "context"

type Checker interface {
	OrderExists(ctx context.Context, orderID string) (bool, error)
}

// Static is an in-memory Checker for tests and local development.
type Static map[string]bool

func (s Static) OrderExists(_ context.Context, orderID string) (bool, error) {
	return s[orderID], nil
}
