package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igarchive/pkg/auth"
	"igarchive/pkg/config"
	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
	"igarchive/pkg/metadata"
	"igarchive/pkg/models"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/retry"
	"igarchive/pkg/scraper"
	"igarchive/pkg/session"
	"igarchive/pkg/storage"
	"igarchive/pkg/ui"
)

var (
	// Fetch command flags
	destDir     string
	loginUser   string
	sessionFile string
	sessionID   string
	fastUpdate  bool
	waitBetween time.Duration
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Download a profile's image posts",
	Long: `Download all image posts from an Instagram profile.

The destination directory defaults to a folder named after the profile.
Posts already on disk are skipped; with --fast-update the traversal stops
entirely at the first already archived post, which makes periodic re-runs
cheap.

Rate limiting by Instagram is handled automatically: the traversal backs
off on an escalating schedule and restarts from the top. Interrupting with
Ctrl-C prints the partial count before exiting.`,
	Example: `  # Anonymous fetch of a public profile
  igarchive fetch somename

  # Custom destination and polite delay
  igarchive fetch somename --dest ./archive/somename --wait 10s

  # Authenticated fetch reusing a saved session file
  igarchive fetch somename --session-file ~/.config/igarchive/somename.session.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&destDir, "dest", "d", "", "destination directory (default: ./<username>)")
	fetchCmd.Flags().StringVarP(&loginUser, "login", "l", "", "log in as this account (stored credentials or prompt)")
	fetchCmd.Flags().StringVar(&sessionFile, "session-file", "", "load the session from this file")
	fetchCmd.Flags().StringVar(&sessionID, "sessionid", "", "use this browser sessionid cookie directly")
	fetchCmd.Flags().BoolVar(&fastUpdate, "fast-update", false, "stop at the first already archived post")
	fetchCmd.Flags().DurationVar(&waitBetween, "wait", 0, "delay between downloads (default 5s)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	username := instagram.SanitizeUsername(strings.TrimSpace(args[0]))

	flags := make(map[string]interface{})
	if destDir != "" {
		flags["dest"] = destDir
	}
	if loginUser != "" {
		flags["login"] = loginUser
	}
	if sessionFile != "" {
		flags["session-file"] = sessionFile
	}
	if sessionID != "" {
		flags["sessionid"] = sessionID
	}
	if fastUpdate {
		flags["fast-update"] = true
	}
	if waitBetween > 0 {
		flags["wait"] = waitBetween
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := instagram.NewClient(instagram.Options{
		Timeout:            cfg.Download.Timeout.Std(),
		UserAgent:          cfg.Instagram.UserAgent,
		ConnectionAttempts: cfg.Retry.ConnectionAttempts,
		Pacer:              ratelimit.NewTokenBucket(cfg.RateLimit.PageRequests, cfg.RateLimit.Period.Std()),
		Logger:             log,
	})
	if err != nil {
		return err
	}

	if err := establishSession(ctx, client, cfg); err != nil {
		ui.PrintError("Authentication failed", err.Error())
		return err
	}

	dest := cfg.Download.Dest
	if dest == "" {
		dest = username
	}
	store, err := storage.NewManager(dest)
	if err != nil {
		ui.PrintError("Failed to prepare destination", err.Error())
		return err
	}

	var collector *metadata.Collector
	if cfg.Download.SaveMetadata {
		collector, err = metadata.NewCollector(dest)
		if err != nil {
			ui.PrintError("Failed to load metadata", err.Error())
			return err
		}
	}

	source := instagram.NewSource(client, store, instagram.SourceOptions{
		Metadata: collector,
		Logger:   log,
	})

	ui.PrintInfo("Target Profile", username)
	profile, err := source.ResolveProfile(ctx, username)
	if err != nil {
		ui.PrintError("Failed to resolve profile", err.Error())
		return err
	}
	ui.PrintInfo("Posts", fmt.Sprintf("%d", profile.MediaCount))
	if profile.IsPrivate {
		ui.PrintWarning("Profile is private; posts are only visible to approved followers")
	}

	bar := ui.NewPostBar(profile.MediaCount, username)

	delays := make([]time.Duration, len(cfg.Retry.Schedule))
	for i, d := range cfg.Retry.Schedule {
		delays[i] = d.Std()
	}

	ctrl := scraper.NewController(source, scraper.Options{
		Schedule:   retry.Schedule{Delays: delays},
		Wait:       ui.Countdown,
		Pacer:      ratelimit.NewFixedInterval(cfg.Download.WaitBetween.Std()),
		FastUpdate: cfg.Download.FastUpdate,
		Logger:     log,
		OnDownload: func(post *models.Post, processed int) {
			bar.Add(1)
		},
	})

	result := ctrl.Run(ctx, profile)
	fmt.Println()

	if collector != nil {
		if err := collector.Save(); err != nil {
			log.WithError(err).Warn("failed to save metadata")
		}
	}

	switch result.Reason {
	case scraper.ReasonCompleted:
		ui.PrintSuccess(fmt.Sprintf("Archived %d image posts to %s", result.Processed, store.OutputDir()))
	case scraper.ReasonInterrupted:
		ui.PrintWarning(fmt.Sprintf("Interrupted; archived %d image posts before stopping", result.Processed))
	case scraper.ReasonNotFound:
		ui.PrintError(fmt.Sprintf("Profile or content no longer available; archived %d image posts", result.Processed))
	case scraper.ReasonStalled:
		ui.PrintError(fmt.Sprintf("Giving up after repeated failures with no progress; archived %d image posts", result.Processed))
	default:
		ui.PrintError(fmt.Sprintf("Stopped on an unrecoverable error; archived %d image posts", result.Processed))
	}

	return nil
}

// establishSession wires authentication into the client. Precedence:
// explicit sessionid cookie, session file, stored session or credentials for
// --login, anonymous.
func establishSession(ctx context.Context, client *instagram.Client, cfg *config.Config) error {
	switch {
	case cfg.Instagram.SessionID != "":
		return client.ApplySession(&session.Session{
			Username:  cfg.Instagram.Username,
			SessionID: cfg.Instagram.SessionID,
		})

	case cfg.Instagram.SessionFile != "":
		mgr := session.NewManagerAtPath(cfg.Instagram.SessionFile)
		sess, err := mgr.Load()
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session file %s does not exist", cfg.Instagram.SessionFile)
		}
		return client.ApplySession(sess)

	case cfg.Instagram.Username != "":
		return loginAs(ctx, client, cfg.Instagram.Username)

	default:
		// Anonymous access; fine for public profiles.
		return nil
	}
}

// loginAs reuses a saved session when one exists, otherwise performs a
// password login with stored or prompted credentials and saves the session.
func loginAs(ctx context.Context, client *instagram.Client, username string) error {
	mgr, err := session.NewManager(username)
	if err != nil {
		return err
	}

	if sess, err := mgr.Load(); err == nil && sess != nil {
		if err := client.ApplySession(sess); err == nil {
			ui.PrintInfo("Session", fmt.Sprintf("reusing saved session for %s", username))
			return nil
		}
	}

	password, err := resolvePassword(username)
	if err != nil {
		return err
	}

	sess, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := mgr.Save(sess); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to persist session")
	}
	return client.ApplySession(sess)
}

// resolvePassword looks up stored credentials and falls back to prompting.
func resolvePassword(username string) (string, error) {
	if credMgr, err := auth.NewManager(); err == nil {
		if account, err := credMgr.Retrieve(username); err == nil && account.Password != "" {
			return account.Password, nil
		}
	}
	return promptPassword(fmt.Sprintf("Password for %s: ", username))
}
