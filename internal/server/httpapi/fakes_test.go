package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/bridge"
	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/isoweek"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
	"github.com/dmitrijs2005/pcpboard/internal/server/services"
)

const (
	adminToken  = "admin-token"
	viewerToken = "viewer-token"
)

var (
	adminUser  = &models.User{ID: 1, Username: "admin", IsAdmin: true}
	viewerUser = &models.User{ID: 2, Username: "viewer"}
)

type fakeUsers struct {
	mu        sync.Mutex
	passwords map[string]string
	tokens    map[string]*models.User
	revoked   []string
	loginErr  error
	authErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		passwords: map[string]string{"admin": "admin123", "viewer": "view"},
		tokens:    map[string]*models.User{adminToken: adminUser, viewerToken: viewerUser},
	}
}

func (f *fakeUsers) Login(_ context.Context, username, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.passwords[username] != password {
		return nil, common.ErrorUnauthorized
	}
	if username == "admin" {
		return &services.LoginResult{User: adminUser, Token: "fresh-admin"}, nil
	}
	return &services.LoginResult{User: viewerUser, Token: "fresh-viewer"}, nil
}

func (f *fakeUsers) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	delete(f.tokens, token)
	return nil
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*models.User, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return u, nil
}

type fakePlans struct {
	mu        sync.Mutex
	states    map[string]json.RawMessage
	comments  map[string]json.RawMessage
	notes     map[string]string
	params    json.RawMessage
	coverage  json.RawMessage
	mutations int
	saved     []plan.Snapshot
	saveErr   error
	now       time.Time
}

func newFakePlans() *fakePlans {
	return &fakePlans{
		states:   map[string]json.RawMessage{},
		comments: map[string]json.RawMessage{},
		notes:    map[string]string{},
		now:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakePlans) GetState(_ context.Context, week string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[week], nil
}

func (f *fakePlans) SaveState(_ context.Context, week string, data json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	f.states[week] = data
	return nil
}

func (f *fakePlans) AllStates(context.Context) ([]plan.WeekData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []plan.WeekData
	for k, v := range f.states {
		out = append(out, plan.WeekData{WeekKey: k, Data: v})
	}
	return out, nil
}

func (f *fakePlans) GetComments(_ context.Context, week string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[week], nil
}

func (f *fakePlans) GetParams(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params, nil
}

func (f *fakePlans) GetCoverage(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.coverage, nil
}

func (f *fakePlans) SaveCoverage(_ context.Context, data json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	f.coverage = data
	return nil
}

func (f *fakePlans) GetNotes(_ context.Context, week string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[week], nil
}

func (f *fakePlans) FullState(context.Context) (*plan.FullState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	weeks := map[string]json.RawMessage{}
	for k, v := range f.states {
		weeks[k] = v
	}
	return &plan.FullState{
		Weeks:         weeks,
		Params:        plan.NullIfEmpty(f.params),
		Coverage:      plan.NullIfEmpty(f.coverage),
		Comments:      map[string]json.RawMessage{},
		Notes:         map[string]string{},
		ExpectedWeeks: isoweek.Expected(f.now),
	}, nil
}

func (f *fakePlans) SaveAll(_ context.Context, snap plan.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mutations++
	f.saved = append(f.saved, snap)
	for k, v := range snap.Weeks {
		f.states[k] = v
	}
	if plan.Present(snap.Params) {
		f.params = snap.Params
	}
	return nil
}

func (f *fakePlans) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

type testEnv struct {
	srv   *Server
	users *fakeUsers
	plans *fakePlans
	reg   *bridge.Registry
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{users: newFakeUsers(), plans: newFakePlans(), reg: bridge.NewRegistry()}
	env.srv = NewServer(opts, logging.Nop(), env.users, env.plans, env.reg)
	return env
}

// do performs a request against the server. token may be empty.
func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}
