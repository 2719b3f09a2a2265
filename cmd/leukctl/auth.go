package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "exchange credentials for a session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"LEUKEMIA_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			sess, err := envFrom(c).auth.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "signed in as %s\n", sess.User.DisplayName())
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the stored token and identity",
		Action: func(c *cli.Context) error {
			return envFrom(c).auth.Logout(c.Context)
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"LEUKEMIA_PASSWORD"}},
			&cli.StringFlag{Name: "confirm", Usage: "password confirmation, defaults to --password"},
		},
		Action: func(c *cli.Context) error {
			confirm := c.String("password")
			if c.IsSet("confirm") {
				confirm = c.String("confirm")
			}
			err := envFrom(c).auth.Register(c.Context, model.RegisterRequest{
				Email:           c.String("email"),
				Password:        c.String("password"),
				ConfirmPassword: confirm,
				Name:            c.String("name"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "account created, run leukctl login")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in account",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "cached", Usage: "print the stored identity without a request"},
		},
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			if c.Bool("cached") {
				user, err := e.identity.Cached(c.Context)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("no stored identity")
				}
				return printJSON(c, user)
			}

			user, err := e.identity.RequireAuthenticated(c.Context)
			if err != nil {
				return err
			}
			if user.OrganizationLogoURL != nil {
				logo := e.api.ResolveURL(*user.OrganizationLogoURL)
				user.OrganizationLogoURL = &logo
			}
			return printJSON(c, user)
		},
	}
}
