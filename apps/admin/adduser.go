package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrRepo.GetUserByEmail(ctx, email)
		if err != nil && errors.Cause(err) != user.ErrNotFound {
			return err
		}
	}

	roles := usr.Roles
	if isAdmin {
		roles = user.AllRoles
	}

	if usr.ID == "" {
		usr = user.User{
			Username: uname,
			Email:    email,
			Roles:    roles,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	active := true
	_, err = cli.usrRepo.UpdateUser(ctx, user.User{
		ID:           usr.ID,
		Username:     uname,
		Email:        email,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		UpdatedAt:    time.Now().UTC(),
	}, &active)
	return err
}
