package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the sentence cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print sentence cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			st, err := store.Stats()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", keyword("backend:"), st.Backend)
			fmt.Fprintf(w, "%s %s\n", keyword("location:"), st.Location)
			fmt.Fprintf(w, "%s %s\n", keyword("entries:"), humanize.Comma(st.Entries))
			fmt.Fprintf(w, "%s %s\n", keyword("size:"), humanize.IBytes(uint64(st.Bytes))) //nolint:gosec
			fmt.Fprintf(w, "%s %d hits, %d misses\n", keyword("lookups:"), st.Hits, st.Misses)
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached sentence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			before, err := store.Stats()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s entries (%s)\n",
				humanize.Comma(before.Entries), humanize.IBytes(uint64(before.Bytes))) //nolint:gosec
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
