package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/snapindex/snapindex/pkg/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "snapindex",
	Short: "Index and search Snapchat data exports",
	Long:  "snapindex detects vendor export archives, ingests them into a local searchable index, and serves conversations, media, and memories back out.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".snapindex", "config.yaml")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to config.yaml")
}

// mustApp loads configuration and opens the Store, exiting the process on
// failure; every leaf command calls this first, matching the per-command
// config.Load() pattern rather than a global OnInitialize hook so that
// --help and completion never pay the cost of opening a database.
func mustApp() *app.App {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	a, err := app.New(configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return a
}
