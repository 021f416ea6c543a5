package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "phrasebook",
		Short:         "Translate phrases, keep them in categories and drill them over Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadRuntime(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "config file path")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "optional .env file with PHRASEBOOK_* overrides")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(pairsCmd())
	return rootCmd
}

// loadRuntime reads the configuration, sets up logging and opens the
// database. A missing default config file falls back to built-in defaults.
func loadRuntime(cmd *cobra.Command) error {
	if err := config.LoadConfig(configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config.AppConfig = config.Defaults()
	}
	if err := config.ApplyEnv(envPath); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	learning.SetSessionTTL(time.Duration(config.AppConfig.Learning.SessionTTLHours) * time.Hour)

	if err := db.InitDB(config.AppConfig.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}
