package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igarchive/pkg/auth"
	"igarchive/pkg/config"
	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
	"igarchive/pkg/session"
	"igarchive/pkg/ui"
)

var storePassword bool

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and save the session for later runs",
	Long: `Log in to Instagram with a password and save the resulting session.

The session is written to the per-user data directory and picked up
automatically by 'igarchive fetch --login <username>'. With --store the
password itself is also saved to the system keychain (or an encrypted file
when no keychain is available) so future logins need no prompt.

Accounts with two-factor authentication cannot log in this way; pass the
sessionid cookie from a browser session to 'igarchive fetch --sessionid'
instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&storePassword, "store", false, "also store the password in the system keychain")
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := instagram.SanitizeUsername(strings.TrimSpace(args[0]))

	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevel})
	if err != nil {
		return err
	}
	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	password, err := promptPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return err
	}

	client, err := instagram.NewClient(instagram.Options{
		Timeout:            cfg.Download.Timeout.Std(),
		UserAgent:          cfg.Instagram.UserAgent,
		ConnectionAttempts: cfg.Retry.ConnectionAttempts,
	})
	if err != nil {
		return err
	}

	sess, err := client.Login(ctx, username, password)
	if err != nil {
		ui.PrintError("Login failed", err.Error())
		return err
	}

	mgr, err := session.NewManager(username)
	if err != nil {
		return err
	}
	if err := mgr.Save(sess); err != nil {
		ui.PrintError("Failed to save session", err.Error())
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Logged in as %s; session saved to %s", username, mgr.Path()))

	if storePassword {
		credMgr, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := credMgr.Store(&auth.Account{
			Username:  username,
			Password:  password,
			SessionID: sess.SessionID,
			UserAgent: sess.UserAgent,
		}); err != nil {
			ui.PrintError("Failed to store credentials", err.Error())
			return err
		}
		ui.PrintSuccess("Credentials stored")
	}

	return nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(data), nil
}
