package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igarchive/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igarchive",
	Short: "Archive the images of an Instagram profile",
	Long: `igarchive downloads the image posts of an Instagram profile to local disk.

Videos are skipped. Already archived posts are detected by shortcode, so
re-running the tool only fetches what is new. Rate limiting is handled with
an escalating backoff and automatic traversal restarts.

Anonymous access works for public profiles; private profiles need a login
(see 'igarchive login') or a browser session cookie (--sessionid).`,
	Example: `  # Archive a public profile into ./somename/
  igarchive fetch somename

  # Archive with a stored login, stopping at the first already saved post
  igarchive fetch somename --login myaccount --fast-update

  # Reuse a browser session cookie
  igarchive fetch somename --sessionid <cookie value>`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.Quiet = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default searches standard locations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`igarchive {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
