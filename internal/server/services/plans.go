package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/dbx"
	"github.com/dmitrijs2005/pcpboard/internal/isoweek"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/repomanager"
)

// Archiver receives every snapshot that was saved completely.
type Archiver interface {
	Archive(ctx context.Context, snap plan.Snapshot) error
}

// PlanService reads and writes the plan buckets.
type PlanService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	archiver    Archiver
	now         func() time.Time
}

func NewPlanService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *PlanService {
	return &PlanService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "plans"),
		now:         time.Now,
	}
}

// SetArchiver installs a, or disables archiving when a is nil.
func (s *PlanService) SetArchiver(a Archiver) {
	s.archiver = a
}

// GetState returns the week's state, or nil when none was saved.
func (s *PlanService) GetState(ctx context.Context, weekKey string) (json.RawMessage, error) {
	return absentAsNil(s.repomanager.States(s.db).Get(ctx, weekKey))
}

func (s *PlanService) SaveState(ctx context.Context, weekKey string, data json.RawMessage) error {
	return s.repomanager.States(s.db).Save(ctx, weekKey, data)
}

func (s *PlanService) AllStates(ctx context.Context) ([]plan.WeekData, error) {
	return s.repomanager.States(s.db).All(ctx)
}

// GetComments returns the week's comments, or nil when none were saved.
func (s *PlanService) GetComments(ctx context.Context, weekKey string) (json.RawMessage, error) {
	return absentAsNil(s.repomanager.Comments(s.db).Get(ctx, weekKey))
}

func (s *PlanService) GetParams(ctx context.Context) (json.RawMessage, error) {
	return absentAsNil(s.repomanager.Params(s.db).Get(ctx))
}

func (s *PlanService) GetCoverage(ctx context.Context) (json.RawMessage, error) {
	return absentAsNil(s.repomanager.Coverage(s.db).Get(ctx))
}

func (s *PlanService) SaveCoverage(ctx context.Context, data json.RawMessage) error {
	return s.repomanager.Coverage(s.db).Save(ctx, data)
}

// GetNotes returns "" when the week has no notes.
func (s *PlanService) GetNotes(ctx context.Context, weekKey string) (string, error) {
	return s.repomanager.Notes(s.db).Get(ctx, weekKey)
}

// FullState loads every bucket plus the planning window around the current
// week.
func (s *PlanService) FullState(ctx context.Context) (*plan.FullState, error) {
	states, err := s.repomanager.States(s.db).All(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := s.repomanager.Comments(s.db).All(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.repomanager.Notes(s.db).All(ctx)
	if err != nil {
		return nil, err
	}
	params, err := s.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	coverage, err := s.GetCoverage(ctx)
	if err != nil {
		return nil, err
	}

	return &plan.FullState{
		Weeks:         byWeek(states),
		Params:        plan.NullIfEmpty(params),
		Coverage:      plan.NullIfEmpty(coverage),
		Comments:      byWeek(comments),
		Notes:         notes,
		ExpectedWeeks: isoweek.Expected(s.now()),
	}, nil
}

// SaveAll persists every present bucket of snap, each in its own
// transaction, in the order weeks, comments, params, notes, coverage.
// A failed bucket does not stop the remaining ones; all failures are
// returned together wrapped in plan.ErrPartialSave.
func (s *PlanService) SaveAll(ctx context.Context, snap plan.Snapshot) error {
	var errs []error

	save := func(bucket plan.Bucket, fn func(ctx context.Context, tx dbx.DBTX) error) {
		if err := dbx.WithTx(ctx, s.db, nil, fn); err != nil {
			s.logger.Error(ctx, "bucket save failed", "bucket", bucket, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", bucket, err))
		}
	}

	if snap.Weeks != nil {
		save(plan.BucketWeeks, func(ctx context.Context, tx dbx.DBTX) error {
			return saveWeekly(ctx, s.repomanager.States(tx).Save, snap.Weeks)
		})
	}
	if snap.Comments != nil {
		save(plan.BucketComments, func(ctx context.Context, tx dbx.DBTX) error {
			return saveWeekly(ctx, s.repomanager.Comments(tx).Save, snap.Comments)
		})
	}
	if plan.Present(snap.Params) {
		save(plan.BucketParams, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Params(tx).Save(ctx, snap.Params)
		})
	}
	if snap.Notes != nil {
		save(plan.BucketNotes, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Notes(tx)
			for _, week := range slices.Sorted(maps.Keys(snap.Notes)) {
				if err := repo.Save(ctx, week, snap.Notes[week]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if plan.Present(snap.Coverage) {
		save(plan.BucketCoverage, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Coverage(tx).Save(ctx, snap.Coverage)
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", plan.ErrPartialSave, errors.Join(errs...))
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, snap); err != nil {
			s.logger.Warn(ctx, "snapshot archive failed", "error", err)
		}
	}
	return nil
}

func saveWeekly(ctx context.Context, save func(context.Context, string, json.RawMessage) error, weeks map[string]json.RawMessage) error {
	for _, week := range slices.Sorted(maps.Keys(weeks)) {
		if err := save(ctx, week, weeks[week]); err != nil {
			return err
		}
	}
	return nil
}

func byWeek(rows []plan.WeekData) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		out[r.WeekKey] = r.Data
	}
	return out
}

func absentAsNil(raw json.RawMessage, err error) (json.RawMessage, error) {
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return raw, err
}
