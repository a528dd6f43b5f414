package planstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/dbx"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
)

type PostgresWeeklyRepository struct {
	db    dbx.DBTX
	table WeeklyTable
}

func NewPostgresWeeklyRepository(db dbx.DBTX, table WeeklyTable) *PostgresWeeklyRepository {
	return &PostgresWeeklyRepository{db: db, table: table}
}

func (r *PostgresWeeklyRepository) Get(ctx context.Context, weekKey string) (json.RawMessage, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE week_key = $1
	`, r.table)

	var data []byte
	if err := r.db.QueryRowContext(ctx, query, weekKey).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return json.RawMessage(data), nil
}

func (r *PostgresWeeklyRepository) Save(ctx context.Context, weekKey string, data json.RawMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (week_key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (week_key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, r.table)

	if _, err := r.db.ExecContext(ctx, query, weekKey, []byte(data)); err != nil {
		return fmt.Errorf("error saving %s %s: %w", r.table, weekKey, err)
	}
	return nil
}

func (r *PostgresWeeklyRepository) All(ctx context.Context) ([]plan.WeekData, error) {
	query := fmt.Sprintf(`
		SELECT week_key, data FROM %s
		ORDER BY week_key
	`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]plan.WeekData, 0)
	for rows.Next() {
		var (
			week string
			data []byte
		)
		if err := rows.Scan(&week, &data); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, plan.WeekData{WeekKey: week, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type PostgresNotesRepository struct {
	db dbx.DBTX
}

func NewPostgresNotesRepository(db dbx.DBTX) *PostgresNotesRepository {
	return &PostgresNotesRepository{db: db}
}

func (r *PostgresNotesRepository) Get(ctx context.Context, weekKey string) (string, error) {
	query := `
		SELECT notes FROM pcp_notes
		WHERE week_key = $1
	`
	var notes string
	if err := r.db.QueryRowContext(ctx, query, weekKey).Scan(&notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return notes, nil
}

func (r *PostgresNotesRepository) Save(ctx context.Context, weekKey string, notes string) error {
	query := `
		INSERT INTO pcp_notes (week_key, notes, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (week_key) DO UPDATE
		SET notes = EXCLUDED.notes, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, weekKey, notes); err != nil {
		return fmt.Errorf("error saving pcp_notes %s: %w", weekKey, err)
	}
	return nil
}

func (r *PostgresNotesRepository) All(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT week_key, notes FROM pcp_notes
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var week, notes string
		if err := rows.Scan(&week, &notes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[week] = notes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type PostgresSingletonRepository struct {
	db    dbx.DBTX
	table SingletonTable
}

func NewPostgresSingletonRepository(db dbx.DBTX, table SingletonTable) *PostgresSingletonRepository {
	return &PostgresSingletonRepository{db: db, table: table}
}

func (r *PostgresSingletonRepository) Get(ctx context.Context) (json.RawMessage, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE id = 1
	`, r.table)

	var data []byte
	if err := r.db.QueryRowContext(ctx, query).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return json.RawMessage(data), nil
}

func (r *PostgresSingletonRepository) Save(ctx context.Context, data json.RawMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, r.table)

	if _, err := r.db.ExecContext(ctx, query, []byte(data)); err != nil {
		return fmt.Errorf("error saving %s: %w", r.table, err)
	}
	return nil
}
