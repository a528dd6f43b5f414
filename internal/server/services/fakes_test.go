package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/dbx"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/authtokens"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/planstate"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/users"
)

// memStore backs every fake repository. failOn makes the named bucket's
// writes fail; writes records which buckets were written, in order.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	tokens   map[string]*models.AuthToken
	states   map[string]json.RawMessage
	comments map[string]json.RawMessage
	notes    map[string]string
	params   json.RawMessage
	coverage json.RawMessage
	failOn   map[string]error
	writes   []string
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		tokens:   map[string]*models.AuthToken{},
		states:   map[string]json.RawMessage{},
		comments: map[string]json.RawMessage{},
		notes:    map[string]string{},
		failOn:   map[string]error{},
	}
}

func (s *memStore) write(bucket string) error {
	if err := s.failOn[bucket]; err != nil {
		return err
	}
	s.writes = append(s.writes, bucket)
	return nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository {
	return &fakeUsers{m.s}
}

func (m *fakeRepoManager) AuthTokens(dbx.DBTX) authtokens.Repository {
	return &fakeTokens{m.s}
}

func (m *fakeRepoManager) States(dbx.DBTX) planstate.WeeklyRepository {
	return &fakeWeekly{s: m.s, name: "states", rows: m.s.states}
}

func (m *fakeRepoManager) Comments(dbx.DBTX) planstate.WeeklyRepository {
	return &fakeWeekly{s: m.s, name: "comments", rows: m.s.comments}
}

func (m *fakeRepoManager) Notes(dbx.DBTX) planstate.NotesRepository {
	return &fakeNotes{m.s}
}

func (m *fakeRepoManager) Params(dbx.DBTX) planstate.SingletonRepository {
	return &fakeSingleton{s: m.s, name: "params", val: &m.s.params}
}

func (m *fakeRepoManager) Coverage(dbx.DBTX) planstate.SingletonRepository {
	return &fakeSingleton{s: m.s, name: "coverage", val: &m.s.coverage}
}

type fakeUsers struct{ s *memStore }

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.users {
		if existing.Username == u.Username {
			return nil, common.ErrorConflict
		}
	}
	f.s.nextID++
	u.ID = f.s.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.s.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["users"]; err != nil {
		return nil, err
	}
	for _, u := range f.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeTokens struct{ s *memStore }

func (f *fakeTokens) Create(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tokens[token] = &models.AuthToken{Token: token, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.AuthToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failOn["tokens"]; err != nil {
		return nil, err
	}
	t, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.tokens, token)
	return nil
}

func (f *fakeTokens) DeleteByUser(_ context.Context, userID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for k, t := range f.s.tokens {
		if t.UserID == userID {
			delete(f.s.tokens, k)
		}
	}
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.tokens {
		if t.Expired(now) {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeWeekly struct {
	s    *memStore
	name string
	rows map[string]json.RawMessage
}

func (f *fakeWeekly) Get(_ context.Context, week string) (json.RawMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v, ok := f.rows[week]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

func (f *fakeWeekly) Save(_ context.Context, week string, data json.RawMessage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.write(f.name); err != nil {
		return err
	}
	f.rows[week] = data
	return nil
}

func (f *fakeWeekly) All(context.Context) ([]plan.WeekData, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []plan.WeekData{}
	for _, k := range slices.Sorted(maps.Keys(f.rows)) {
		out = append(out, plan.WeekData{WeekKey: k, Data: f.rows[k]})
	}
	return out, nil
}

type fakeNotes struct{ s *memStore }

func (f *fakeNotes) Get(_ context.Context, week string) (string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.notes[week], nil
}

func (f *fakeNotes) Save(_ context.Context, week, notes string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.write("notes"); err != nil {
		return err
	}
	f.s.notes[week] = notes
	return nil
}

func (f *fakeNotes) All(context.Context) (map[string]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return maps.Clone(f.s.notes), nil
}

type fakeSingleton struct {
	s    *memStore
	name string
	val  *json.RawMessage
}

func (f *fakeSingleton) Get(context.Context) (json.RawMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if *f.val == nil {
		return nil, common.ErrorNotFound
	}
	return *f.val, nil
}

func (f *fakeSingleton) Save(_ context.Context, data json.RawMessage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.write(f.name); err != nil {
		return err
	}
	*f.val = data
	return nil
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
