// Package cmd is the admin CLI for operating a cardbox deployment.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/cardbox/logger"
	"github.com/cardbox-bot/cardbox/internal/gateways/database"
)

// NewRootCmd builds the command tree. Every subcommand reads the bot's
// config file.
func NewRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "cardboxctl",
		Short:         "Admin tools for the cardbox bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional file with secret overrides")

	load := func() (*cardbox.Config, error) {
		cfg, err := cardbox.LoadConfig(configPath, envFile)
		if err != nil {
			return nil, err
		}
		logger.Setup(cfg.Log.Level)
		return cfg, nil
	}

	root.AddCommand(
		newMigrateCmd(load),
		newAssetsCmd(load),
		newLeaderboardCmd(load),
	)
	return root
}

type configLoader func() (*cardbox.Config, error)

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context, cfg *cardbox.Config) (*database.DB, error) {
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
