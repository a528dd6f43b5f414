// Package cli implements pcpadmin, the operator tool that provisions PCP
// board accounts directly in the database.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/flagx"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
)

// Accounts manages users. *services.UserService satisfies it.
type Accounts interface {
	Provision(ctx context.Context, username, password string, isAdmin bool) (*models.User, error)
	RevokeSessions(ctx context.Context, username string) error
}

var ErrPasswordMismatch = errors.New("passwords do not match")

type Options struct {
	Username string
	IsAdmin  bool
	Revoke   bool
}

// ParseArgs reads -n (username), -admin and -revoke out of args, ignoring the
// server flags that config.LoadConfig consumes.
func ParseArgs(args []string) (Options, error) {
	var o Options

	fs := flag.NewFlagSet("pcpadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.Username, "n", "", "username to create")
	fs.BoolVar(&o.IsAdmin, "admin", false, "grant admin rights")
	fs.BoolVar(&o.Revoke, "revoke", false, "revoke all sessions of the user")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-n", "-admin", "-revoke"})); err != nil {
		return o, fmt.Errorf("error parsing flags: %w", err)
	}
	return o, nil
}

type App struct {
	users Accounts
	in    *bufio.Reader
	out   io.Writer
}

func NewApp(users Accounts, in io.Reader, out io.Writer) *App {
	return &App{users: users, in: bufio.NewReader(in), out: out}
}

// Run revokes sessions or creates a user, depending on o.
func (a *App) Run(ctx context.Context, o Options) error {
	if o.Revoke {
		return a.RevokeSessions(ctx, o.Username)
	}
	_, err := a.CreateUser(ctx, o)
	return err
}

// RevokeSessions logs username out of every device.
func (a *App) RevokeSessions(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("-n is required with -revoke")
	}
	err := a.users.RevokeSessions(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked all sessions of %q\n", username)
	return nil
}

// CreateUser asks for any missing username, then for the password twice,
// and provisions the account.
func (a *App) CreateUser(ctx context.Context, o Options) (*models.User, error) {
	username := o.Username
	if username == "" {
		var err error
		if username, err = GetSimpleText(a.in, "Username", a.out); err != nil {
			return nil, err
		}
	}

	pw, err := GetPassword(a.in, "Password", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword(a.in, "Repeat password", a.out)
	if err != nil {
		return nil, err
	}
	if pw != confirm {
		return nil, ErrPasswordMismatch
	}

	user, err := a.users.Provision(ctx, username, pw, o.IsAdmin)
	switch {
	case errors.Is(err, common.ErrorConflict):
		return nil, fmt.Errorf("user %q already exists", username)
	case errors.Is(err, common.ErrorValidation):
		return nil, errors.New("username and password must not be empty")
	case err != nil:
		return nil, err
	}

	role := "viewer"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(a.out, "created %s %q (id %d)\n", role, user.Username, user.ID)
	return user, nil
}
