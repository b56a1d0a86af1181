package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/receiptvault/internal/dbx"
	"github.com/dmitrijs2005/receiptvault/internal/server/repositories/receipts"
	"github.com/dmitrijs2005/receiptvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/receiptvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// them either on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Receipts(db dbx.DBTX) receipts.Repository
}
