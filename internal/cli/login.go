package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/auth"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Token  string
	UserID string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token for sync",
		Long: `Save a session token in the local database. Sync operations run as the
token's user.

With --user, a token is issued locally from auth.secret, which is how a
self-hosted "grove serve" is used.

Examples:
  grove login --token eyJhbGciOi...
  grove login --user alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "session token")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "issue a token for this user with the configured secret")
	cmd.MarkFlagsOneRequired("token", "user")
	cmd.MarkFlagsMutuallyExclusive("token", "user")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	token := opts.Token
	if opts.UserID != "" {
		if a.cfg.Auth.Secret == "" {
			return NewExitError(ExitCommandError, "--user needs auth.secret (or GROVE_AUTH_SECRET)")
		}
		// Tokens are checked against real time, never the command clock.
		token, err = auth.IssueToken(opts.UserID, a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL, time.Now())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to issue token", err)
		}
	}

	id, err := a.session.Login(ctx, token)
	if err != nil {
		return WrapExitError(ExitCommandError, "login failed", err)
	}
	a.logger.Debug("signed in", "user_id", id.UserID)

	return a.out.Render(id, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Signed in as %s\n", id.UserID)
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Forget the session token",
		Long:          "Remove the stored session token. Local events and pending pushes are kept.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(rootOpts, cmd)
		},
	}
}

func runLogout(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Logout(ctx); err != nil {
		return WrapExitError(ExitCommandError, "logout failed", err)
	}
	return a.out.Render(map[string]bool{"signed_out": true}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Signed out")
	})
}
