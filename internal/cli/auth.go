package cli

import (
	"fmt"
	"os"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"

	"github.com/spf13/cobra"
)

// passwordEnv lets scripts log in without putting the password on the command line
const passwordEnv = "RESUMEFORGE_PASSWORD"

type authOptions struct {
	email    string
	password string
	name     string
}

func (o *authOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.email, "email", "", "Account email address")
	cmd.Flags().StringVar(&o.password, "password", "", "Account password (default $"+passwordEnv+")")
}

func (o *authOptions) resolvePassword() string {
	if o.password != "" {
		return o.password
	}
	return os.Getenv(passwordEnv)
}

func newLoginCmd() *cobra.Command {
	opts := &authOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the credentials for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts, false)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func newSignupCmd() *cobra.Command {
	opts := &authOptions{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts, true)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.name, "name", "", "Your full name")
	return cmd
}

func runAuth(cmd *cobra.Command, opts *authOptions, signup bool) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	email := strings.TrimSpace(opts.email)
	password := opts.resolvePassword()

	var auth *types.AuthResponse
	if signup {
		auth, err = client.Signup(ctx, email, password, strings.TrimSpace(opts.name))
	} else {
		auth, err = client.Login(ctx, email, password)
	}
	if err != nil {
		logger.LogError(err, "Authentication failed", "email", email, "signup", signup)
		return err
	}

	sess, err := credentials(ctx).Create(ctx, auth)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", sess.User.DisplayName())
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions := credentials(ctx)
			sess, err := sessions.Current(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err := sessions.Logout(ctx, nil, sess.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(cmd.Context(), credentials(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sess.User.Name != "" {
				fmt.Fprintf(out, "%s <%s>\n", sess.User.Name, sess.User.Email)
			} else {
				fmt.Fprintln(out, sess.User.Email)
			}
			if sess.ActiveProfileID != "" {
				fmt.Fprintf(out, "Active profile: %s\n", sess.ActiveProfileID)
			}
			return nil
		},
	}
}

// notFound reports a missing profile or resume the user named on the command line
func notFound(what, id string) error {
	return errors.NewValidationError(errors.ErrCodeNotFound, what+" not found.", nil).WithContext("id", id)
}
