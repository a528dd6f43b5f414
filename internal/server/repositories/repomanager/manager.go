// Package repomanager vends repositories bound to either a *sql.DB or a
// *sql.Tx, so services can run the same code inside or outside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pcpboard/internal/dbx"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/planstate"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	AuthTokens(db dbx.DBTX) authtokens.Repository
	States(db dbx.DBTX) planstate.WeeklyRepository
	Comments(db dbx.DBTX) planstate.WeeklyRepository
	Notes(db dbx.DBTX) planstate.NotesRepository
	Params(db dbx.DBTX) planstate.SingletonRepository
	Coverage(db dbx.DBTX) planstate.SingletonRepository
}
