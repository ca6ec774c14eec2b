package main

import (
	"encoding/json"
	"fmt"

	"github.com/mohammad-safakhou/narrator/internal/narration"
	"github.com/spf13/cobra"
)

func narrateCMD(cfgPath *string) *cobra.Command {
	var fingerprint string
	cmd := &cobra.Command{
		Use:   "narrate <url>",
		Short: "Narrate one article and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.narration.Narrate(cmd.Context(), narration.Request{URL: args[0], Fingerprint: fingerprint})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "cache key input used instead of the fetched content")
	return cmd
}

func refreshCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a listing refresh and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.listing.Get(cmd.Context(), true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.IsStale {
				fmt.Fprintf(out, "refresh failed (%s); %d cached articles from %s still served\n",
					res.Error, len(res.Articles), res.ScrapedAt.Format("2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintf(out, "%s: %d articles scraped at %s\n", res.Source, len(res.Articles), res.ScrapedAt.Format("2006-01-02 15:04"))
			for i, art := range res.Articles {
				if i == 10 {
					fmt.Fprintf(out, "  ... %d more\n", len(res.Articles)-i)
					break
				}
				fmt.Fprintf(out, "  [%s] %s\n", art.Category, art.Title)
			}
			return nil
		},
	}
}

func cleanupCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove narrations older than cache.narration_horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.narration.Cleanup(cmd.Context(), a.cfg.Cache.NarrationHorizon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d narrations\n", n)
			return nil
		},
	}
}
