package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	calls   []string
	err     error
	revoked []string
}

func (f *fakeAccounts) RevokeSessions(_ context.Context, username string) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, username)
	return nil
}

func (f *fakeAccounts) Provision(_ context.Context, username, password string, isAdmin bool) (*models.User, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%s:%v", username, password, isAdmin))
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: 7, Username: username, IsAdmin: isAdmin}, nil
}

func noTerminal(t *testing.T) {
	t.Helper()
	old := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = old })
}

func TestParseArgs(t *testing.T) {
	o, err := ParseArgs([]string{"-d", "postgres://x", "-n", "alice", "-admin"})
	require.NoError(t, err)
	assert.Equal(t, Options{Username: "alice", IsAdmin: true}, o)

	o, err = ParseArgs([]string{"-revoke", "-n", "alice"})
	require.NoError(t, err)
	assert.Equal(t, Options{Username: "alice", Revoke: true}, o)

	o, err = ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, Options{}, o)
}

func TestCreateUser(t *testing.T) {
	noTerminal(t)
	p := &fakeAccounts{}
	var out bytes.Buffer

	app := NewApp(p, strings.NewReader("s3cret\ns3cret\n"), &out)
	u, err := app.CreateUser(context.Background(), Options{Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, []string{"alice:s3cret:true"}, p.calls)
	assert.Contains(t, out.String(), `created admin "alice" (id 7)`)
}

func TestCreateUser_PromptsForUsername(t *testing.T) {
	noTerminal(t)
	p := &fakeAccounts{}

	app := NewApp(p, strings.NewReader("bob\npw\npw\n"), &bytes.Buffer{})
	_, err := app.CreateUser(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob:pw:false"}, p.calls)
}

func TestCreateUser_Mismatch(t *testing.T) {
	noTerminal(t)
	p := &fakeAccounts{}

	app := NewApp(p, strings.NewReader("one\ntwo\n"), &bytes.Buffer{})
	_, err := app.CreateUser(context.Background(), Options{Username: "alice"})
	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, p.calls)
}

func TestCreateUser_Errors(t *testing.T) {
	noTerminal(t)

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"duplicate", fmt.Errorf("error creating user: %w", common.ErrorConflict), `user "alice" already exists`},
		{"empty", common.ErrorValidation, "must not be empty"},
		{"other", errors.New("db down"), "db down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(&fakeAccounts{err: tt.err}, strings.NewReader("pw\npw\n"), &bytes.Buffer{})
			_, err := app.CreateUser(context.Background(), Options{Username: "alice"})
			require.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestGetPassword_Terminal(t *testing.T) {
	oldTerm, oldRead := isTerminal, readPassword
	defer func() { isTerminal, readPassword = oldTerm, oldRead }()

	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("hidden"), nil }

	var out bytes.Buffer
	pw, err := GetPassword(bufio.NewReader(strings.NewReader("")), "Password", &out)
	require.NoError(t, err)
	assert.Equal(t, "hidden", pw)
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(bufio.NewReader(strings.NewReader("")), "Password", &out)
	require.Error(t, err)
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)
	assert.Equal(t, "Name?\n> ", out.String())

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "Name?", &out)
	require.Error(t, err)
}

func TestRun_Revoke(t *testing.T) {
	p := &fakeAccounts{}
	var out bytes.Buffer

	app := NewApp(p, strings.NewReader(""), &out)
	require.NoError(t, app.Run(context.Background(), Options{Username: "alice", Revoke: true}))

	assert.Equal(t, []string{"alice"}, p.revoked)
	assert.Empty(t, p.calls, "revoking never creates users")
	assert.Contains(t, out.String(), `revoked all sessions of "alice"`)
}

func TestRun_RevokeErrors(t *testing.T) {
	app := NewApp(&fakeAccounts{}, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorContains(t, app.Run(context.Background(), Options{Revoke: true}), "-n is required")

	app = NewApp(&fakeAccounts{err: common.ErrorNotFound}, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorContains(t, app.Run(context.Background(), Options{Username: "ghost", Revoke: true}), `user "ghost" not found`)
}

func TestRun_CreatesByDefault(t *testing.T) {
	noTerminal(t)
	p := &fakeAccounts{}

	app := NewApp(p, strings.NewReader("pw\npw\n"), &bytes.Buffer{})
	require.NoError(t, app.Run(context.Background(), Options{Username: "carol"}))
	assert.Equal(t, []string{"carol:pw:false"}, p.calls)
}
