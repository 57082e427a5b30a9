package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igarchive/pkg/config"
	"igarchive/pkg/ui"
)

var configInitPath string

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying all sources in precedence order:
defaults, config file, environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := map[string]interface{}{}
		if logLevel != "" {
			flags["log-level"] = logLevel
		}
		cfg, err := config.Load(configFile, flags)
		if err != nil {
			return err
		}

		// Never print the session cookie.
		if cfg.Instagram.SessionID != "" {
			cfg.Instagram.SessionID = "********"
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return err
			}
			path = filepath.Join(base, "igarchive", "config.yaml")
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Wrote default configuration to %s", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the config file")
}
