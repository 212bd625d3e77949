package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docnexus/internal/domain"
)

type loginCommander struct {
	opts     *rootOptions
	password string
	stdin    io.Reader
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	cmder := &loginCommander{opts: opts}
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.stdin = cmd.InOrStdin()
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&cmder.password, "password", "", "Password (prompted for when omitted)")
	return cmd
}

func (c *loginCommander) run(ctx context.Context, cmd *cobra.Command, username string) error {
	a, err := newApp(ctx, c.opts, false)
	if err != nil {
		return err
	}
	defer a.Close()

	password := c.password
	if password == "" {
		if password, err = readPassword(cmd.ErrOrStderr(), c.stdin); err != nil {
			return err
		}
	}

	tok, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.store.SaveToken(ctx, tok.AccessToken, username); err != nil {
		return err
	}
	a.bus.Publish(ctx, domain.NewEvent(domain.EventSessionChanged, "", domain.SessionChangedPayload{Username: username, LoggedIn: true}))
	a.logger.Info("logged in", "username", username)
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
	return nil
}

// readPassword prompts on w. A terminal stdin is read without echo; other
// input is read up to the first newline.
func readPassword(w io.Writer, in io.Reader) (string, error) {
	fmt.Fprint(w, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", domain.NewDomainError("login", domain.ErrInvalidInput, err.Error())
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", domain.NewDomainError("login", domain.ErrInvalidInput, "no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if password == "" {
				if password, err = readPassword(cmd.ErrOrStderr(), cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if err := a.client.Register(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run \"docnexus login %s\" to sign in.\n", args[0], args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted for when omitted)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ClearToken(ctx); err != nil {
				return err
			}
			a.bus.Publish(ctx, domain.NewEvent(domain.EventSessionChanged, "", domain.SessionChangedPayload{LoggedIn: false}))
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
