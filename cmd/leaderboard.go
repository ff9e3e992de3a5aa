package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/gateways/access"
	"github.com/cardbox-bot/cardbox/internal/gateways/database"
)

func newLeaderboardCmd(load configLoader) *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top players",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			table, err := cfg.RarityTable()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			engine := economy.NewEngine(database.NewStore(db.BunDB()), access.AllowAll{}, nil, table,
				economy.WithLeaderboardSize(cfg.Economy.LeaderboardSize))
			rows, err := engine.Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd, rows)
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 0, "rows to print (default: economy.leaderboard_size)")
	return c
}

func printLeaderboard(cmd *cobra.Command, rows []economy.LeaderboardRow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tHANDLE\tBALANCE\tCARDS")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\n", r.Rank, r.UserID, r.DisplayHandle(), r.Balance, r.CardCount)
	}
	return w.Flush()
}
