package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and merge your cloud journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			if err := c.ask(&email, "Email"); err != nil {
				return err
			}
			if err := c.ask(&password, "Password"); err != nil {
				return err
			}
			u, err := a.session.Login(cmd.Context(), a.api, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Signed in as %s\n", u.Email)
			a.engine.FullSync(cmd.Context(), true)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return offline(cmd)
}

func newRegisterCmd(c *cli) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and upload this device's journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			for _, f := range []struct {
				dst   *string
				label string
			}{{&name, "Name"}, {&email, "Email"}, {&password, "Password"}} {
				if err := c.ask(f.dst, f.label); err != nil {
					return err
				}
			}
			u, err := a.session.Register(cmd.Context(), a.api, name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Welcome, %s\n", u.Email)
			a.engine.FullSync(cmd.Context(), true)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return offline(cmd)
}

func newLogoutCmd(c *cli) *cobra.Command {
	return offline(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token; local data stays on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.session.Logout()
			return nil
		},
	})
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return offline(&cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := c.app.session.User()
			if !c.app.session.IsLoggedIn() || u == nil {
				fmt.Fprintln(c.out, "Not signed in")
				return nil
			}
			line := u.Email
			if u.Name != "" {
				line = fmt.Sprintf("%s <%s>", u.Name, u.Email)
			}
			if len(u.Roles) > 0 {
				line += dimStyle.Render(" [" + strings.Join(u.Roles, ",") + "]")
			}
			fmt.Fprintln(c.out, line)
			return nil
		},
	})
}

func newSyncCmd(c *cli) *cobra.Command {
	return offline(&cobra.Command{
		Use:   "sync",
		Short: "Download newer cloud data, then upload this device's journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.app.engine.FullSync(cmd.Context(), true) {
				return fmt.Errorf("sync did not complete")
			}
			return nil
		},
	})
}

func newStatusCmd(c *cli) *cobra.Command {
	return offline(&cobra.Command{
		Use:   "status",
		Short: "Show where the journal lives and when it last changed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			doc := a.store.GetData()
			fmt.Fprintln(c.out, titleStyle.Render("REIGN"))
			fmt.Fprintf(c.out, "api:      %s\n", a.api.BaseURL())
			fmt.Fprintf(c.out, "data:     %s\n", a.cfg.DataPath())
			if doc.LastUpdated != nil {
				fmt.Fprintf(c.out, "updated:  %s\n", doc.LastUpdated.Local().Format(time.RFC1123))
			} else {
				fmt.Fprintln(c.out, "updated:  never")
			}
			if a.session.IsLoggedIn() {
				fmt.Fprintln(c.out, "account:  signed in")
			} else {
				fmt.Fprintln(c.out, "account:  "+dimStyle.Render("local only"))
			}
			return nil
		},
	})
}

// ask fills *dst from the terminal when the flag was left empty.
func (c *cli) ask(dst *string, label string) error {
	if *dst != "" {
		return nil
	}
	v, err := c.prompt(label)
	if err != nil {
		return err
	}
	if v == "" {
		return fmt.Errorf("%s is required", strings.ToLower(label))
	}
	*dst = v
	return nil
}
