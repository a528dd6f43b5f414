// Package planstate persists the PCP plan buckets: weekly states, weekly
// comments, weekly notes and the params and coverage singletons.
//
// Every write is an idempotent upsert that stamps updated_at. There is no
// versioning: the last writer wins.
package planstate

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/pcpboard/internal/plan"
)

// WeeklyTable names a JSON bucket keyed by ISO week.
type WeeklyTable string

const (
	StatesTable   WeeklyTable = "pcp_states"
	CommentsTable WeeklyTable = "pcp_comments"
)

// SingletonTable names a bucket holding at most one JSON row.
type SingletonTable string

const (
	ParamsTable   SingletonTable = "pcp_params"
	CoverageTable SingletonTable = "pcp_coverage"
)

// WeeklyRepository stores one opaque JSON document per week key.
type WeeklyRepository interface {
	// Get returns the stored document or common.ErrorNotFound.
	Get(ctx context.Context, weekKey string) (json.RawMessage, error)
	Save(ctx context.Context, weekKey string, data json.RawMessage) error
	// All returns every row ordered by week key.
	All(ctx context.Context) ([]plan.WeekData, error)
}

// NotesRepository stores free text per week key.
type NotesRepository interface {
	// Get returns "" when no notes exist for the week.
	Get(ctx context.Context, weekKey string) (string, error)
	Save(ctx context.Context, weekKey string, notes string) error
	All(ctx context.Context) (map[string]string, error)
}

// SingletonRepository stores a single global JSON document.
type SingletonRepository interface {
	// Get returns the stored document or common.ErrorNotFound.
	Get(ctx context.Context) (json.RawMessage, error)
	Save(ctx context.Context, data json.RawMessage) error
}
