package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

func newAssetsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "Count drawable images per rarity folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			table, err := cfg.RarityTable()
			if err != nil {
				return err
			}
			store, err := cardbox.OpenAssets(cmd.Context(), cfg.Assets)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tFOLDER\tWEIGHT\tPRICE\tIMAGES")

			var empty []rarity.Tier
			for _, info := range table.All() {
				names, err := store.List(cmd.Context(), info.Folder)
				if err != nil {
					return fmt.Errorf("failed to list %q: %w", info.Folder, err)
				}
				images := 0
				for _, n := range names {
					if rarity.SupportedImage(n) {
						images++
					}
				}
				if images == 0 && info.Weight > 0 {
					empty = append(empty, info.Tier)
				}
				fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%d\n", info.Tier, info.Folder, info.Weight, info.Price, images)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(empty) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nwarning: draws landing on %v will fail until images are added\n", empty)
			}
			return nil
		},
	}
}
