package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/engine"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Check the speech engine, fetching its models when missing",
	Long:  paragraph(fmt.Sprintf("\nResolve the speech engine and make sure its models are in place. Prints %s when they already were, %s after a first run fetched them.", keyword(engine.StatusReady), keyword(engine.StatusDownloaded))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := newNarrator(nil).Warmup(cmd.Context(), kokoOptions())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status)
		return nil
	},
}
