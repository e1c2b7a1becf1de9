package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classforms/core/user"
)

// addUser updates or creates an active user.User. Admins get every role.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()

	nu := user.NewUser{Name: name, Email: email, Password: pwd, Role: role}
	isAdmin := strings.EqualFold(strings.TrimSpace(role), "admin")
	if isAdmin {
		nu.Role = ""
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	roles := nu.Roles()
	if isAdmin {
		roles = user.AllRoles
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		if nu.Name != "" {
			usr.Name = nu.Name
		}
		if usr, err = cli.usrSvc.SetActive(ctx, usr, true); err != nil {
			return errors.Wrap(err, "activating user")
		}
		if usr, err = cli.usrSvc.SetPassword(ctx, usr, nu.Password); err != nil {
			return errors.Wrap(err, "setting password")
		}
	case errors.Cause(err) == user.ErrNotFound:
		if usr, err = cli.usrSvc.Register(ctx, nu); err != nil {
			return errors.Wrap(err, "registering user")
		}
	default:
		return errors.Wrap(err, "finding user by email")
	}

	_, err = cli.usrSvc.SetRoles(ctx, usr, roles)
	return errors.Wrap(err, "setting roles")
}

func (cli *commandLine) deactivate(email string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetActive(ctx, usr, false)
	return err
}
