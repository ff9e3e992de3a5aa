package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardbox-bot/cardbox/cardbox/logger"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	var reset, yes bool

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Create the bot's tables and indexes",
		Long: "Creates users and user_cards with their indexes if they do not exist.\n" +
			"With --reset --yes every row is deleted first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset && !yes {
				return errors.New("--reset deletes all users and cards, pass --yes to confirm")
			}

			cfg, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err = db.InitializeSchema(ctx); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			if reset {
				if err = db.ResetAppTables(ctx); err != nil {
					return err
				}
			}

			logger.LogSystem("Schema ready", "database", cfg.DB.Database, "reset", reset)
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
	c.Flags().BoolVar(&reset, "reset", false, "truncate users and user_cards")
	c.Flags().BoolVar(&yes, "yes", false, "confirm --reset")
	return c
}
