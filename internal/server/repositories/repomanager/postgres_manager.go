package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pcpboard/internal/dbx"
	"github.com/dmitrijs2005/pcpboard/internal/server/migrations"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/planstate"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and runs
// the embedded goose migrations.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AuthTokens(db dbx.DBTX) authtokens.Repository {
	return authtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) States(db dbx.DBTX) planstate.WeeklyRepository {
	return planstate.NewPostgresWeeklyRepository(db, planstate.StatesTable)
}

func (m *PostgresRepositoryManager) Comments(db dbx.DBTX) planstate.WeeklyRepository {
	return planstate.NewPostgresWeeklyRepository(db, planstate.CommentsTable)
}

func (m *PostgresRepositoryManager) Notes(db dbx.DBTX) planstate.NotesRepository {
	return planstate.NewPostgresNotesRepository(db)
}

func (m *PostgresRepositoryManager) Params(db dbx.DBTX) planstate.SingletonRepository {
	return planstate.NewPostgresSingletonRepository(db, planstate.ParamsTable)
}

func (m *PostgresRepositoryManager) Coverage(db dbx.DBTX) planstate.SingletonRepository {
	return planstate.NewPostgresSingletonRepository(db, planstate.CoverageTable)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
