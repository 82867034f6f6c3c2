package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/authkeeper/internal/client/api"
	"github.com/iudanet/authkeeper/internal/client/iocli"
	"github.com/iudanet/authkeeper/internal/client/storage/boltdb"
)

// Options - глобальные флаги клиента
type Options struct {
	ServerURL string
	DBPath    string
	Passwords Passwords
}

type runFunc func(ctx context.Context, c *Cli, args []string) error

// NewRootCommand builds the client command tree.
func NewRootCommand(io iocli.IO, version string) *cobra.Command {
	opts := &Options{}

	// withCli открывает локальное хранилище на время одной команды
	withCli := func(fn runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := boltdb.New(ctx, opts.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open local storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			c := New(io, api.NewClient(opts.ServerURL, store), store, opts.Passwords)
			return fn(ctx, c, args)
		}
	}

	root := &cobra.Command{
		Use:           "authkeeper",
		Short:         "authkeeper client",
		Long:          "Command line client for the authkeeper account and session service.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(io)
	root.SetErr(io)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ServerURL, "server", "http://localhost:8080", "Server URL")
	flags.StringVar(&opts.DBPath, "db", "authkeeper-client.db", "Path to local database")
	flags.StringVar(&opts.Passwords.FromArgs, "password", "", "Password (not recommended, use "+PasswordEnv+" or file)")
	flags.StringVar(&opts.Passwords.FromFile, "password-file", "", "Path to file containing password")

	var name, email string

	register := &cobra.Command{
		Use:   "register",
		Short: "Register new user",
		Args:  cobra.NoArgs,
		RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runRegister(ctx, name, email)
		}),
	}
	register.Flags().StringVar(&name, "name", "", "Display name")
	register.Flags().StringVar(&email, "email", "", "Email")

	login := &cobra.Command{
		Use:   "login",
		Short: "Login to server",
		Args:  cobra.NoArgs,
		RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runLogin(ctx, email)
		}),
	}
	login.Flags().StringVar(&email, "email", "", "Email")

	forgot := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runForgotPassword(ctx, email)
		}),
	}
	forgot.Flags().StringVar(&email, "email", "", "Email")

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List active sessions",
		Args:  cobra.NoArgs,
		RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
			return c.runSessions(ctx)
		}),
	}
	sessions.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke one of your sessions",
		Args:  cobra.ExactArgs(1),
		RunE: withCli(func(ctx context.Context, c *Cli, args []string) error {
			return c.runRevokeSession(ctx, args[0])
		}),
	})

	root.AddCommand(
		register,
		login,
		&cobra.Command{
			Use:   "logout",
			Short: "Logout from server",
			Args:  cobra.NoArgs,
			RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
				return c.runLogout(ctx)
			}),
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Refresh the access token",
			Args:  cobra.NoArgs,
			RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
				return c.runRefresh(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show local authentication status",
			Args:  cobra.NoArgs,
			RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
				return c.runStatus(ctx)
			}),
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the current user",
			Args:  cobra.NoArgs,
			RunE: withCli(func(ctx context.Context, c *Cli, _ []string) error {
				return c.runWhoami(ctx)
			}),
		},
		sessions,
		&cobra.Command{
			Use:   "verify-email <code>",
			Short: "Verify email with the code from the verification email",
			Args:  cobra.ExactArgs(1),
			RunE: withCli(func(ctx context.Context, c *Cli, args []string) error {
				return c.runVerifyEmail(ctx, args[0])
			}),
		},
		forgot,
		&cobra.Command{
			Use:   "reset-password <code>",
			Short: "Set a new password with the code from the reset email",
			Args:  cobra.ExactArgs(1),
			RunE: withCli(func(ctx context.Context, c *Cli, args []string) error {
				return c.runResetPassword(ctx, args[0])
			}),
		},
	)

	return root
}
